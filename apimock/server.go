// Package apimock serves registered mocks over HTTP, routing the /ngapimock control plane
// and scoping scenario choices to the client session that made them.
package apimock

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/apimock/handlers"
	"github.com/zerbitx/apimock/registry"
)

type (
	// Server is a fiber app serving the mocks held in a registry
	Server struct {
		app    *fiber.App
		state  *registry.State
		logger logrus.FieldLogger
		port   int
		host   string
	}

	config struct {
		port    int
		host    string
		backend *url.URL
		logger  logrus.FieldLogger
	}

	// Option is a function that can modify a default config
	Option func(c *config)
)

// New returns a server for state on 127.0.0.1:8080 unless options say otherwise
func New(state *registry.State, options ...Option) *Server {
	c := &config{
		port:   8080,
		logger: logrus.StandardLogger(),
		host:   "127.0.0.1",
	}

	for _, applyOption := range options {
		applyOption(c)
	}

	app := fiber.New(&fiber.Settings{
		ServerHeader:          "apimock",
		DisableStartupMessage: true,
	})

	h := handlers.New(c.logger)
	dispatcher := NewDispatcher(state, Collaborators{
		Record:          h.Record,
		ListMocks:       h.ListMocks,
		UpdateMock:      h.UpdateMock,
		ReleaseMock:     h.ReleaseMock,
		SetDefaults:     h.SetDefaults,
		SetPassThroughs: h.SetPassThroughs,
		ListVariables:   h.ListVariables,
		UpsertVariables: h.UpsertVariables,
		DeleteVariable:  h.DeleteVariable,
		Mocks:           h.Mocks,
	})

	app.Use(dispatcher.Handle)

	if c.backend != nil {
		c.logger.WithField("backend", c.backend.String()).Debug("passing through")
		app.Use(Passthrough(c.backend, c.logger))
	}

	return &Server{
		app:    app,
		state:  state,
		logger: c.logger,
		port:   c.port,
		host:   c.host,
	}
}

// App exposes the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until the server is shut down
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"host":  s.host,
		"port":  s.port,
		"mocks": len(s.state.Mocks()),
	}).Info("main")

	return s.app.Listen(fmt.Sprintf("%s:%d", s.host, s.port))
}

// Shutdown gracefully shuts down the app
func (s *Server) Shutdown() error {
	if shutdownErr := s.app.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("failed to shutdown app %w", shutdownErr)
	}

	return nil
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHost sets the host
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithPort sets the port
func WithPort(port int) Option {
	return func(c *config) {
		c.port = port
	}
}

// WithBackend forwards unmatched and passed through requests to backend instead of answering 404
func WithBackend(backend *url.URL) Option {
	return func(c *config) {
		c.backend = backend
	}
}
