package api

import (
	"errors"
	"log/slog"

	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/semantic"
	"github.com/chataize/semantic-index/pkg/tagindex"
	"github.com/chataize/semantic-index/pkg/worker"
)

// Server is the API server for adding to and querying a semantic database.
type Server struct {
	config Config
	db     *semantic.Database[string]
	index  *tagindex.Index
	pool   *worker.Pool
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. index and pool are optional; without
// an index the /v1/index routes answer 503, and without a pool async
// ingestion falls back to synchronous appends.
func NewServer(config Config, db *semantic.Database[string], index *tagindex.Index, pool *worker.Pool, log *slog.Logger) (*Server, error) {
	if db == nil {
		return nil, errors.New("api server requires a database")
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           gojson.Marshal,
		JSONDecoder:           gojson.Unmarshal,
	})

	s := &Server{
		config: config,
		db:     db,
		index:  index,
		pool:   pool,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/items", s.handleAddItem)
	v1.Delete("/items", s.handleRemoveItem)
	v1.Get("/items/count", s.handleCountItems)
	v1.Get("/search", s.handleSearch)
	v1.Post("/refresh", s.handleRefresh)
	v1.Post("/snapshot", s.handleSnapshot)

	v1.Post("/index", s.handleIndexAdd)
	v1.Get("/index/find", s.handleIndexFind)
	v1.Delete("/index", s.handleIndexRemove)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
