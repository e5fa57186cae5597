// Package handlers implements the control plane routes and the mock serving fallback.
// Every handler works on the caller's session, as stamped on the request by the identity package.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gofiber/fiber"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/apimock/encode"
	"github.com/zerbitx/apimock/identity"
	"github.com/zerbitx/apimock/registry"
	"github.com/zerbitx/apimock/spec"
)

type (
	// Handlers holds what the route handlers share
	Handlers struct {
		logger   logrus.FieldLogger
		patterns sync.Map
	}

	message struct {
		Message string `json:"message"`
	}

	mocksResponse struct {
		Mocks      []*spec.Mock                    `json:"mocks"`
		Selections map[string]string               `json:"selections"`
		Variables  map[string]string               `json:"variables"`
		Recordings map[string][]registry.Recording `json:"recordings"`
		Record     bool                            `json:"record"`
	}

	recordRequest struct {
		Record bool `json:"record"`
	}

	selectRequest struct {
		Identifier string  `json:"identifier"`
		Scenario   *string `json:"scenario"`
	}
)

// New returns handlers logging to logger
func New(logger logrus.FieldLogger) *Handlers {
	return &Handlers{logger: logger}
}

// Record turns recording on or off
func (h *Handlers) Record(c *fiber.Ctx, state *registry.State) {
	var req recordRequest
	if !h.decode(c, &req) {
		return
	}

	state.SetRecording(req.Record)
	h.logger.WithField("record", req.Record).Info("recording toggled")

	c.SendStatus(http.StatusOK)
}

// ListMocks responds with the catalog and what the caller is currently served
func (h *Handlers) ListMocks(c *fiber.Ctx, state *registry.State) {
	token := identity.Token(c)

	h.respond(c, http.StatusOK, mocksResponse{
		Mocks:      state.Mocks(),
		Selections: state.Selections(token),
		Variables:  state.Variables(token),
		Recordings: state.Recordings(),
		Record:     state.Recording(),
	})
}

// UpdateMock picks the scenario a mock answers with for the caller. A null scenario passes it through.
func (h *Handlers) UpdateMock(c *fiber.Ctx, state *registry.State) {
	var req selectRequest
	if !h.decode(c, &req) {
		return
	}

	scenario := registry.PassThrough
	if req.Scenario != nil {
		scenario = *req.Scenario
	}

	token := identity.Token(c)
	if err := state.Select(token, req.Identifier, scenario); err != nil {
		h.logger.WithError(err).WithField("identifier", req.Identifier).Warn("failed to select scenario")
		h.respond(c, http.StatusConflict, message{Message: err.Error()})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session":    token,
		"identifier": req.Identifier,
		"scenario":   scenario,
	}).Debug("scenario selected")

	c.SendStatus(http.StatusOK)
}

// ReleaseMock puts a mock back on its default scenario for the caller
func (h *Handlers) ReleaseMock(c *fiber.Ctx, state *registry.State) {
	var req selectRequest
	if !h.decode(c, &req) {
		return
	}

	if err := state.Release(identity.Token(c), req.Identifier); err != nil {
		h.logger.WithError(err).WithField("identifier", req.Identifier).Warn("failed to release mock")
		h.respond(c, http.StatusConflict, message{Message: err.Error()})
		return
	}

	c.SendStatus(http.StatusOK)
}

// SetDefaults puts every mock back on its default scenario for the caller
func (h *Handlers) SetDefaults(c *fiber.Ctx, state *registry.State) {
	state.ResetToDefaults(identity.Token(c))

	c.SendStatus(http.StatusOK)
}

// SetPassThroughs forwards every mock for the caller
func (h *Handlers) SetPassThroughs(c *fiber.Ctx, state *registry.State) {
	state.PassThroughAll(identity.Token(c))

	c.SendStatus(http.StatusOK)
}

// ListVariables responds with the caller's variables
func (h *Handlers) ListVariables(c *fiber.Ctx, state *registry.State) {
	h.respond(c, http.StatusOK, state.Variables(identity.Token(c)))
}

// UpsertVariables merges a JSON object into the caller's variables.
// Values that are not strings are kept as their JSON text.
func (h *Handlers) UpsertVariables(c *fiber.Ctx, state *registry.State) {
	var raw map[string]json.RawMessage
	if !h.decode(c, &raw) {
		return
	}

	variables := make(map[string]string, len(raw))
	for name, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			variables[name] = s
			continue
		}
		variables[name] = string(value)
	}

	state.SetVariables(identity.Token(c), variables)

	c.SendStatus(http.StatusOK)
}

// DeleteVariable removes the variable named by the last path segment
func (h *Handlers) DeleteVariable(c *fiber.Ctx, state *registry.State) {
	path := c.Path()
	name := path[strings.LastIndex(path, "/")+1:]
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	if !state.DeleteVariable(identity.Token(c), name) {
		h.logger.WithField("variable", name).Debug("variable not set")
	}

	c.SendStatus(http.StatusOK)
}

// decode reads the JSON body into v, answering 400 when it cannot
func (h *Handlers) decode(c *fiber.Ctx, v interface{}) bool {
	if err := json.Unmarshal(c.Fasthttp.Request.Body(), v); err != nil {
		h.logger.WithError(err).WithField("path", c.Path()).Error("failed to decode request body")
		h.respond(c, http.StatusBadRequest, message{Message: err.Error()})
		return false
	}

	return true
}

func (h *Handlers) respond(c *fiber.Ctx, status int, v interface{}) {
	c.Set("Content-Type", "application/json")
	c.Status(status)

	if err := encode.JSON(c.Fasthttp.Response.BodyWriter(), v); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
		c.SendStatus(http.StatusInternalServerError)
	}
}
