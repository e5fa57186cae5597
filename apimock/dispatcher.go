package apimock

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber"
	"github.com/zerbitx/apimock/identity"
	"github.com/zerbitx/apimock/registry"
)

// Route names, in the order they are matched
const (
	RouteRecord          = "record"
	RouteListMocks       = "list-mocks"
	RouteUpdateMock      = "update-mock"
	RouteReleaseMock     = "release-mock"
	RouteSetDefaults     = "set-defaults"
	RouteSetPassThroughs = "set-passthroughs"
	RouteListVariables   = "list-variables"
	RouteUpsertVariables = "upsert-variables"
	RouteDeleteVariable  = "delete-variable"
)

type (
	// Handler serves one control plane route
	Handler func(c *fiber.Ctx, state *registry.State)

	// Fallback serves every request no route claims
	Fallback func(c *fiber.Ctx, next func(), state *registry.State)

	// Collaborators are what the dispatcher routes to. Mocks is required.
	Collaborators struct {
		Record          Handler
		ListMocks       Handler
		UpdateMock      Handler
		ReleaseMock     Handler
		SetDefaults     Handler
		SetPassThroughs Handler
		ListVariables   Handler
		UpsertVariables Handler
		DeleteVariable  Handler
		Mocks           Fallback
	}

	route struct {
		name   string
		method string
		path   string
		prefix bool
		handle Handler
	}

	// Dispatcher stamps the caller's session on each request and hands it to exactly one collaborator
	Dispatcher struct {
		state    *registry.State
		routes   []route
		fallback Fallback
	}
)

// NewDispatcher builds the route table. It panics without a Mocks fallback.
// Routes whose handler is nil are left out and fall through to Mocks.
func NewDispatcher(state *registry.State, collaborators Collaborators) *Dispatcher {
	if collaborators.Mocks == nil {
		panic("apimock: dispatcher needs a Mocks fallback")
	}

	table := []route{
		{RouteRecord, http.MethodPut, "/ngapimock/mocks/record", false, collaborators.Record},
		{RouteListMocks, http.MethodGet, "/ngapimock/mocks", false, collaborators.ListMocks},
		{RouteUpdateMock, http.MethodPut, "/ngapimock/mocks", false, collaborators.UpdateMock},
		{RouteReleaseMock, http.MethodPost, "/ngapimock/mocks/release", false, collaborators.ReleaseMock},
		{RouteSetDefaults, http.MethodPut, "/ngapimock/mocks/defaults", false, collaborators.SetDefaults},
		{RouteSetPassThroughs, http.MethodPut, "/ngapimock/mocks/passthroughs", false, collaborators.SetPassThroughs},
		{RouteListVariables, http.MethodGet, "/ngapimock/variables", false, collaborators.ListVariables},
		{RouteUpsertVariables, http.MethodPut, "/ngapimock/variables", false, collaborators.UpsertVariables},
		{RouteDeleteVariable, http.MethodDelete, "/ngapimock/variables/", true, collaborators.DeleteVariable},
	}

	d := &Dispatcher{state: state, fallback: collaborators.Mocks}
	for _, r := range table {
		if r.handle != nil {
			d.routes = append(d.routes, r)
		}
	}

	return d
}

// Lookup returns the route a request URL and method go to. false means the Mocks fallback.
func (d *Dispatcher) Lookup(method, url string) (string, bool) {
	r, ok := d.lookup(method, url)

	return r.name, ok
}

func (d *Dispatcher) lookup(method, url string) (route, bool) {
	for _, r := range d.routes {
		if r.method != method {
			continue
		}

		if r.path == url || (r.prefix && strings.HasPrefix(url, r.path)) {
			return r, true
		}
	}

	return route{}, false
}

// Handle is the fiber handler for every request
func (d *Dispatcher) Handle(c *fiber.Ctx) {
	identity.Attach(c)

	if r, ok := d.lookup(c.Method(), c.OriginalURL()); ok {
		r.handle(c, d.state)
		return
	}

	d.fallback(c, func() { c.Next() }, d.state)
}
