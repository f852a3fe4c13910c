package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chataize/semantic-index/pkg/semantic"
)

const defaultTopK = 5

// ItemRequest is the body of POST and DELETE /v1/items.
type ItemRequest struct {
	Text string `json:"text"`
}

// AddResponse reports whether a record was stored.
type AddResponse struct {
	Stored bool `json:"stored"`
}

// RemoveResponse reports how many records were removed.
type RemoveResponse struct {
	Removed int `json:"removed"`
}

// CountResponse reports the number of stored records.
type CountResponse struct {
	Count int `json:"count"`
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

// SearchResponse is the body of GET /v1/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// SnapshotResponse is the body of POST /v1/snapshot.
type SnapshotResponse struct {
	Records int `json:"records"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAddItem handles POST /v1/items.
func (s *Server) handleAddItem(c *fiber.Ctx) error {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest(c, "text is required")
	}

	stored, err := s.db.Add(c.Context(), req.Text)
	if err != nil {
		return s.fail(c, err)
	}

	status := fiber.StatusOK
	if stored {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(AddResponse{Stored: stored})
}

// handleRemoveItem handles DELETE /v1/items.
func (s *Server) handleRemoveItem(c *fiber.Ctx) error {
	var req ItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	return c.JSON(RemoveResponse{Removed: s.db.Remove(req.Text)})
}

// handleCountItems handles GET /v1/items/count.
func (s *Server) handleCountItems(c *fiber.Ctx) error {
	return c.JSON(CountResponse{Count: s.db.Count()})
}

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query parameter is required")
	}

	topK, err := parseTopK(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	scored, err := s.db.SearchTextScored(c.Context(), query, topK)
	if err != nil {
		return s.fail(c, err)
	}

	results := make([]SearchResult, len(scored))
	for i, r := range scored {
		results[i] = SearchResult{Text: r.Item, Score: r.Score}
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// handleRefresh handles POST /v1/refresh.
func (s *Server) handleRefresh(c *fiber.Ctx) error {
	if err := s.db.Refresh(c.Context()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(CountResponse{Count: s.db.Count()})
}

// handleSnapshot handles POST /v1/snapshot.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	if s.config.Snapshot == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "snapshots are not configured",
		})
	}

	snap := &countingSnapshot{Snapshotter: s.config.Snapshot}
	if err := s.db.SaveTo(c.Context(), snap); err != nil {
		return s.fail(c, err)
	}

	return c.JSON(SnapshotResponse{Records: snap.written})
}

// countingSnapshot records how many records its last write held.
type countingSnapshot struct {
	semantic.Snapshotter[string]
	written int
}

func (s *countingSnapshot) WriteSnapshot(ctx context.Context, recs []semantic.Record[string]) error {
	if err := s.Snapshotter.WriteSnapshot(ctx, recs); err != nil {
		return err
	}
	s.written = len(recs)
	return nil
}

var errInvalidTopK = errors.New("top_k must be a positive integer")

func parseTopK(c *fiber.Ctx) (int, error) {
	raw := c.Query("top_k")
	if raw == "" {
		return defaultTopK, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errInvalidTopK
	}
	return n, nil
}

// splitTags parses a comma-separated tag list, ignoring blanks.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}

	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
