// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package server exposes circuit sessions over a JSON HTTP API.
//
// Every circuit is an independent session identified by a UUID. Its composite
// definitions are persisted in the definition set of the same name, so that
// reopening a circuit with a known id restores its definitions.
package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/session"
	"github.com/db47h/logicsim/internal/store"
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Server is the HTTP front end.
type Server struct {
	app  *fiber.App
	st   store.Store
	log  *slog.Logger
	opts []logicsim.Option

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New returns a new server storing definitions in st. opts are applied to
// every circuit.
func New(st store.Store, log *slog.Logger, opts ...logicsim.Option) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		st:       st,
		log:      log,
		opts:     opts,
		sessions: make(map[string]*session.Session),
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "logicsim",
		ErrorHandler: s.errorHandler,
	})
	s.app.Use(recoverer.New())
	s.app.Use(s.logRequest)
	s.routes()
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves HTTP requests on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the HTTP server and closes all sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()
	for _, ss := range sessions {
		if cerr := ss.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) logRequest(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request", "method", c.Method(), "path", c.Path(), "status", c.Response().StatusCode(), "duration", time.Since(start))
	return err
}

func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	} else {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// open returns the session for id, creating it if needed. An empty id
// creates a new session with a random id.
func (s *Server) open(ctx context.Context, id string) (*session.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	} else if ss := s.sessions[id]; ss != nil {
		return ss, false, nil
	}
	ss, err := session.New(ctx, s.st, id, s.log.With("circuit", id), s.opts...)
	if err != nil {
		return nil, false, err
	}
	s.sessions[id] = ss
	return ss, true, nil
}

func (s *Server) get(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Server) close(id string) bool {
	s.mu.Lock()
	ss := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ss == nil {
		return false
	}
	if err := ss.Close(); err != nil {
		s.log.Warn("closing session", "circuit", id, "error", err)
	}
	return true
}

func (s *Server) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// status maps circuit errors to HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, logicsim.ErrUnknownComponent),
		errors.Is(err, logicsim.ErrUnknownDefinition),
		errors.Is(err, logicsim.ErrUnknownNode):
		return fiber.StatusNotFound
	case errors.Is(err, logicsim.ErrDuplicateDefinition):
		return fiber.StatusConflict
	case errors.Is(err, logicsim.ErrInvalidWiring),
		errors.Is(err, logicsim.ErrWrongKind),
		errors.Is(err, logicsim.ErrInvalidGate),
		errors.Is(err, logicsim.ErrInvalidPeriod),
		errors.Is(err, logicsim.ErrEmptyName),
		errors.Is(err, logicsim.ErrEmptyInterface),
		errors.Is(err, logicsim.ErrInvalidSelection),
		errors.Is(err, logicsim.ErrClockInComposite),
		errors.Is(err, logicsim.ErrCorruptDefinitions):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(status(err)).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
}
