package handlers

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/apimock/identity"
	"github.com/zerbitx/apimock/registry"
	"github.com/zerbitx/apimock/spec"
)

// Mocks serves the caller's selected scenario for the first mock matching the request,
// calling next when nothing matches or the mock is passed through.
func (h *Handlers) Mocks(c *fiber.Ctx, next func(), state *registry.State) {
	token := identity.Token(c)
	state.Touch(token)

	m := h.match(state.Mocks(), c.Method(), c.OriginalURL())
	if m == nil {
		next()
		h.record(c, state, registry.Unmatched)
		return
	}

	key, ok := state.Selected(token, m.Identifier)
	if !ok {
		next()
		h.record(c, state, m.Identifier)
		return
	}

	resp, ok := m.Responses.Get(key)
	if !ok {
		h.logger.WithFields(logrus.Fields{
			"identifier": m.Identifier,
			"scenario":   key,
		}).Warn("selected scenario no longer exists")
		next()
		h.record(c, state, m.Identifier)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session":    token,
		"identifier": m.Identifier,
		"scenario":   key,
	}).Debug("serving")

	h.serve(c, resp, state.Variables(token))
	h.record(c, state, m.Identifier)
}

func (h *Handlers) match(mocks []*spec.Mock, method, url string) *spec.Mock {
	method = utils.ToUpper(method)

	for _, m := range mocks {
		if utils.ToUpper(m.Method) != method {
			continue
		}

		if re := h.pattern(m.Expression); re != nil && re.MatchString(url) {
			return m
		}
	}

	return nil
}

// pattern compiles expression once. Invalid expressions are cached as nil and never match.
func (h *Handlers) pattern(expression string) *regexp.Regexp {
	if cached, ok := h.patterns.Load(expression); ok {
		return cached.(*regexp.Regexp)
	}

	re, err := regexp.Compile(expression)
	if err != nil {
		h.logger.WithError(err).WithField("expression", expression).Warn("invalid mock expression")
		re = nil
	}

	h.patterns.Store(expression, re)

	return re
}

func (h *Handlers) serve(c *fiber.Ctx, resp spec.Response, variables map[string]string) {
	if resp.Delay > 0 {
		time.Sleep(time.Duration(resp.Delay) * time.Millisecond)
	}

	body, err := render(resp, variables)
	if err != nil {
		h.logger.WithError(err).Error("failed to render response")
		c.SendStatus(http.StatusInternalServerError)
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	if len(resp.Headers) == 0 {
		c.Set("Content-Type", "application/json")
	}
	for header, value := range resp.Headers {
		c.Set(header, value)
	}

	c.Status(status)
	c.SendBytes(body)
}

// render builds the body from the response file or data, replacing %%name%% with variables
func render(resp spec.Response, variables map[string]string) ([]byte, error) {
	var body string

	switch data := resp.Data; {
	case resp.File != "":
		b, err := ioutil.ReadFile(resp.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read response file: %w", err)
		}
		body = string(b)
	case data == nil:
	default:
		if s, ok := data.(string); ok {
			body = s
			break
		}

		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response data: %w", err)
		}
		body = string(b)
	}

	if len(variables) > 0 {
		names := make([]string, 0, len(variables))
		for name := range variables {
			names = append(names, name)
		}

		// the replacer tries arguments in order, so longer names win where names overlap
		sort.Slice(names, func(i, j int) bool {
			if len(names[i]) != len(names[j]) {
				return len(names[i]) > len(names[j])
			}
			return names[i] < names[j]
		})

		pairs := make([]string, 0, len(names)*2)
		for _, name := range names {
			pairs = append(pairs, "%%"+name+"%%", variables[name])
		}
		body = strings.NewReplacer(pairs...).Replace(body)
	}

	return []byte(body), nil
}

func (h *Handlers) record(c *fiber.Ctx, state *registry.State, key string) {
	if !state.Recording() {
		return
	}

	state.Record(key, registry.Recording{
		Method: utils.ImmutableString(c.Method()),
		URL:    utils.ImmutableString(c.OriginalURL()),
		Status: c.Fasthttp.Response.StatusCode(),
		Body:   string(c.Fasthttp.Response.Body()),
	})
}
