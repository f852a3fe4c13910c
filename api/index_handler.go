package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chataize/semantic-index/pkg/tagindex"
	"github.com/chataize/semantic-index/pkg/worker"
)

// IndexAddRequest is the body of POST /v1/index.
type IndexAddRequest struct {
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
	Async bool     `json:"async"`
}

// QueuedResponse is returned when an append was handed to the worker pool.
type QueuedResponse struct {
	JobID  string `json:"job_id"`
	Queued bool   `json:"queued"`
}

// IndexRemoveRequest is the body of DELETE /v1/index. Exactly one of Text
// or Tags must be set.
type IndexRemoveRequest struct {
	Text string   `json:"text"`
	Tags []string `json:"tags"`
}

// IndexFindResponse is the body of GET /v1/index/find.
type IndexFindResponse struct {
	Query   string           `json:"query"`
	Tags    []string         `json:"tags"`
	Count   int              `json:"count"`
	Results []tagindex.Match `json:"results"`
}

func (s *Server) indexUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error: "tag index is not configured",
	})
}

// handleIndexAdd handles POST /v1/index.
func (s *Server) handleIndexAdd(c *fiber.Ctx) error {
	if s.index == nil {
		return s.indexUnavailable(c)
	}

	var req IndexAddRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	if err := tagindex.ValidateTags(req.Tags); err != nil {
		return s.fail(c, err)
	}

	if req.Async && s.pool != nil {
		job := worker.NewJob(req.Text, req.Tags...)
		if !s.pool.Enqueue(job) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error: "index queue is full",
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(QueuedResponse{JobID: job.ID, Queued: true})
	}

	if err := s.index.Add(c.Context(), req.Text, req.Tags...); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AddResponse{Stored: true})
}

// handleIndexFind handles GET /v1/index/find.
// Query parameters:
//   - query (required): the search query text
//   - tags (optional): comma-separated tags every hit must carry
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleIndexFind(c *fiber.Ctx) error {
	if s.index == nil {
		return s.indexUnavailable(c)
	}

	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query parameter is required")
	}

	topK, err := parseTopK(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	tags := splitTags(c.Query("tags"))
	matches, err := s.index.Find(c.Context(), query, tags, topK)
	if err != nil {
		return s.fail(c, err)
	}
	if matches == nil {
		matches = []tagindex.Match{}
	}
	if tags == nil {
		tags = []string{}
	}

	return c.JSON(IndexFindResponse{
		Query:   query,
		Tags:    tags,
		Count:   len(matches),
		Results: matches,
	})
}

// handleIndexRemove handles DELETE /v1/index.
func (s *Server) handleIndexRemove(c *fiber.Ctx) error {
	if s.index == nil {
		return s.indexUnavailable(c)
	}

	var req IndexRemoveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	var (
		removed int
		err     error
	)
	switch {
	case req.Text != "" && len(req.Tags) > 0:
		return badRequest(c, "set either text or tags, not both")
	case req.Text != "":
		removed, err = s.index.Remove(c.Context(), req.Text)
	case len(req.Tags) > 0:
		removed, err = s.index.RemoveTags(c.Context(), req.Tags...)
	default:
		return badRequest(c, "text or tags is required")
	}
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(RemoveResponse{Removed: removed})
}
