// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package server

import (
	"time"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/session"
	"github.com/gofiber/fiber/v3"
)

type handler func(c fiber.Ctx, ss *session.Session) error

// with resolves the session of the :id route parameter.
func (s *Server) with(h handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		ss := s.get(c.Params("id"))
		if ss == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "circuit not found"})
		}
		return h(c, ss)
	}
}

func (s *Server) routes() {
	a := s.app

	// ── Circuits ──────────────────────────────────────────────────────
	a.Get("/circuits", func(c fiber.Ctx) error {
		return c.JSON(s.ids())
	})
	a.Post("/circuits", s.createCircuit)
	a.Get("/circuits/:id", s.with(getCircuit))
	a.Delete("/circuits/:id", func(c fiber.Ctx) error {
		if !s.close(c.Params("id")) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "circuit not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	a.Post("/circuits/:id/reset", s.with(func(c fiber.Ctx, ss *session.Session) error {
		if err := ss.Reset(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}))
	a.Post("/circuits/:id/simulate", s.with(func(c fiber.Ctx, ss *session.Session) error {
		return c.JSON(ss.Simulate())
	}))

	// ── Components ────────────────────────────────────────────────────
	a.Post("/circuits/:id/components", s.with(addComponent))
	a.Delete("/circuits/:id/components", s.with(removeComponents))
	a.Get("/circuits/:id/components/:cid", s.with(getComponent))
	a.Delete("/circuits/:id/components/:cid", s.with(func(c fiber.Ctx, ss *session.Session) error {
		if ss.Remove(logicsim.ComponentID(c.Params("cid"))) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "component not found"})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}))
	a.Put("/circuits/:id/components/:cid/position", s.with(moveComponent))
	a.Post("/circuits/:id/components/:cid/toggle", s.with(func(c fiber.Ctx, ss *session.Session) error {
		id := logicsim.ComponentID(c.Params("cid"))
		if err := ss.Toggle(id); err != nil {
			return fail(c, err)
		}
		return sendComponent(c, ss, id, fiber.StatusOK)
	}))
	a.Post("/circuits/:id/components/:cid/tick", s.with(func(c fiber.Ctx, ss *session.Session) error {
		id := logicsim.ComponentID(c.Params("cid"))
		if err := ss.Tick(id); err != nil {
			return fail(c, err)
		}
		return sendComponent(c, ss, id, fiber.StatusOK)
	}))
	a.Post("/circuits/:id/duplicate", s.with(duplicate))

	// ── Connections ───────────────────────────────────────────────────
	a.Get("/circuits/:id/connections", s.with(func(c fiber.Ctx, ss *session.Session) error {
		var cs []logicsim.Connection
		ss.View(func(cc *logicsim.Circuit, _ logicsim.Report) { cs = cc.Connections() })
		if cs == nil {
			cs = []logicsim.Connection{}
		}
		return c.JSON(cs)
	}))
	a.Post("/circuits/:id/connections", s.with(connect))
	a.Delete("/circuits/:id/connections", s.with(disconnect))

	// ── Definitions ───────────────────────────────────────────────────
	a.Get("/circuits/:id/definitions", s.with(listDefinitions))
	a.Post("/circuits/:id/definitions", s.with(defineComposite))
	a.Put("/circuits/:id/definitions", s.with(importDefinitions))
	a.Post("/circuits/:id/library", s.with(func(c fiber.Ctx, ss *session.Session) error {
		names, err := ss.InstallLibrary(c.Context())
		if err != nil {
			return fail(c, err)
		}
		if names == nil {
			names = []string{}
		}
		return c.JSON(fiber.Map{"installed": names})
	}))
	a.Delete("/circuits/:id/definitions/:name", s.with(func(c fiber.Ctx, ss *session.Session) error {
		n, err := ss.RemoveDefinition(c.Context(), c.Params("name"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"removed": n})
	}))
	a.Post("/circuits/:id/definitions/:name/instances", s.with(instantiate))
}

type circuitRequest struct {
	ID string `json:"id"`
}

func (s *Server) createCircuit(c fiber.Ctx) error {
	var req circuitRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c)
		}
	}
	ss, created, err := s.open(c.Context(), req.ID)
	if err != nil {
		return fail(c, err)
	}
	code := fiber.StatusOK
	if created {
		code = fiber.StatusCreated
	}
	return c.Status(code).JSON(fiber.Map{"id": ss.ID()})
}

type circuitState struct {
	ID          string                   `json:"id"`
	Components  []*logicsim.Component    `json:"components"`
	Connections []logicsim.Connection    `json:"connections"`
	Definitions []string                 `json:"definitions"`
	Values      map[logicsim.NodeID]bool `json:"values"`
	Report      logicsim.Report          `json:"report"`
}

func getCircuit(c fiber.Ctx, ss *session.Session) error {
	var err error
	ss.View(func(cc *logicsim.Circuit, r logicsim.Report) {
		st := circuitState{
			ID:          ss.ID(),
			Components:  cc.Components(),
			Connections: cc.Connections(),
			Definitions: []string{},
			Values:      cc.Values(),
			Report:      r,
		}
		if st.Components == nil {
			st.Components = []*logicsim.Component{}
		}
		if st.Connections == nil {
			st.Connections = []logicsim.Connection{}
		}
		for _, d := range cc.Definitions() {
			st.Definitions = append(st.Definitions, d.Name)
		}
		// encode while holding the session lock
		err = c.JSON(st)
	})
	return err
}

func sendComponent(c fiber.Ctx, ss *session.Session, id logicsim.ComponentID, code int) error {
	var err error
	ss.View(func(cc *logicsim.Circuit, _ logicsim.Report) {
		cp := cc.Component(id)
		if cp == nil {
			err = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "component not found"})
			return
		}
		err = c.Status(code).JSON(cp)
	})
	return err
}

func getComponent(c fiber.Ctx, ss *session.Session) error {
	return sendComponent(c, ss, logicsim.ComponentID(c.Params("cid")), fiber.StatusOK)
}

type componentRequest struct {
	Kind       logicsim.Kind     `json:"kind"`
	Gate       logicsim.GateType `json:"gate"`
	Pos        logicsim.Point    `json:"pos"`
	Value      bool              `json:"value"`
	Period     string            `json:"period"`
	Definition string            `json:"definition"`
}

func addComponent(c fiber.Ctx, ss *session.Session) error {
	var req componentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	spec := logicsim.Spec{
		Kind:       req.Kind,
		Gate:       req.Gate,
		Pos:        req.Pos,
		Value:      req.Value,
		Definition: req.Definition,
	}
	if req.Period != "" {
		d, err := time.ParseDuration(req.Period)
		if err != nil {
			return badRequest(c)
		}
		spec.Period = d
	}
	id, err := ss.AddComponent(spec)
	if err != nil {
		return fail(c, err)
	}
	return sendComponent(c, ss, id, fiber.StatusCreated)
}

type idsRequest struct {
	IDs []logicsim.ComponentID `json:"ids"`
	Pos logicsim.Point         `json:"pos"`
}

func removeComponents(c fiber.Ctx, ss *session.Session) error {
	var req idsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	return c.JSON(fiber.Map{"removed": ss.Remove(req.IDs...)})
}

func duplicate(c fiber.Ctx, ss *session.Session) error {
	var req idsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	ids, err := ss.Duplicate(req.Pos, req.IDs...)
	if err != nil {
		return fail(c, err)
	}
	if ids == nil {
		ids = []logicsim.ComponentID{}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ids": ids})
}

func moveComponent(c fiber.Ctx, ss *session.Session) error {
	var pos logicsim.Point
	if err := c.Bind().JSON(&pos); err != nil {
		return badRequest(c)
	}
	if err := ss.Move(logicsim.ComponentID(c.Params("cid")), pos); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type connectionRequest struct {
	Source logicsim.NodeID   `json:"source"`
	Target logicsim.NodeID   `json:"target"`
	Nodes  []logicsim.NodeID `json:"nodes"`
}

func connect(c fiber.Ctx, ss *session.Session) error {
	var req connectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	cn, err := ss.Connect(req.Source, req.Target)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cn)
}

func disconnect(c fiber.Ctx, ss *session.Session) error {
	var req connectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	return c.JSON(fiber.Map{"removed": ss.Disconnect(req.Nodes...)})
}

func listDefinitions(c fiber.Ctx, ss *session.Session) error {
	var err error
	ss.View(func(cc *logicsim.Circuit, _ logicsim.Report) {
		defs := cc.Definitions()
		if defs == nil {
			defs = []*logicsim.Definition{}
		}
		err = c.JSON(defs)
	})
	return err
}

type defineRequest struct {
	Name string                 `json:"name"`
	IDs  []logicsim.ComponentID `json:"ids"`
}

func defineComposite(c fiber.Ctx, ss *session.Session) error {
	var req defineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c)
	}
	d, err := ss.Define(c.Context(), req.Name, req.IDs...)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func importDefinitions(c fiber.Ctx, ss *session.Session) error {
	defs, err := logicsim.UnmarshalDefinitions(c.Body())
	if err != nil {
		return fail(c, err)
	}
	if err = ss.ImportDefinitions(c.Context(), defs...); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func instantiate(c fiber.Ctx, ss *session.Session) error {
	var pos logicsim.Point
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&pos); err != nil {
			return badRequest(c)
		}
	}
	id, err := ss.Instantiate(c.Params("name"), pos)
	if err != nil {
		return fail(c, err)
	}
	return sendComponent(c, ss, id, fiber.StatusCreated)
}
