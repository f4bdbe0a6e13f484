package autoroute

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIVersion is the version of documents built by Router.
const OpenAPIVersion = "3.0.3"

type mounted struct {
	route   Route
	private bool
}

// Router collects generated routes, serves them from an http.ServeMux and
// documents the public ones.
type Router struct {
	routes     []mounted
	patterns   map[string]string
	middleware []func(http.Handler) http.Handler
	metrics    *Metrics
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{patterns: map[string]string{}}
}

// Route adds a documented route. Adding a second route with the same method
// and path panics.
func (rt *Router) Route(routes ...Route) *Router {
	for _, r := range routes {
		rt.add(mounted{route: r})
	}
	return rt
}

// PrivateRoute adds a route that is served but left out of OpenAPI.
func (rt *Router) PrivateRoute(routes ...Route) *Router {
	for _, r := range routes {
		rt.add(mounted{route: r, private: true})
	}
	return rt
}

func (rt *Router) add(m mounted) {
	pattern := m.route.Info().Pattern()
	if prev, ok := rt.patterns[pattern]; ok {
		panic(fmt.Sprintf("autoroute: route %s of %s is already registered by %s", pattern, m.route.Name(), prev))
	}
	rt.patterns[pattern] = m.route.Name()
	rt.routes = append(rt.routes, m)
}

// Merge adds the routes of other. The middleware of other keeps applying to
// its own routes only.
func (rt *Router) Merge(other *Router) *Router {
	return rt.Nest("", other)
}

// Nest adds the routes of other below prefix.
func (rt *Router) Nest(prefix string, other *Router) *Router {
	for _, m := range other.routes {
		r := m.route.WithPrefix(prefix)
		r.handler = other.wrap(r.handler)
		rt.add(mounted{route: r, private: m.private})
	}
	return rt
}

// Use appends middleware. The first middleware added is the outermost.
func (rt *Router) Use(mw ...func(http.Handler) http.Handler) *Router {
	rt.middleware = append(rt.middleware, mw...)
	return rt
}

// WithMetrics instruments every route with m.
func (rt *Router) WithMetrics(m *Metrics) *Router {
	rt.metrics = m
	return rt
}

// Routes lists public and private routes in registration order.
func (rt *Router) Routes() []Route {
	out := make([]Route, len(rt.routes))
	for i, m := range rt.routes {
		out[i] = m.route
	}
	return out
}

func (rt *Router) wrap(h http.Handler) http.Handler {
	for i := len(rt.middleware) - 1; i >= 0; i-- {
		h = rt.middleware[i](h)
	}
	return h
}

// Handler builds the ServeMux.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, m := range rt.routes {
		h := m.route.Handler()
		if rt.metrics != nil {
			h = rt.metrics.Instrument(m.route.Info().Pattern(), h)
		}
		mux.Handle(m.route.Info().Pattern(), h)
	}
	return rt.wrap(mux)
}

// OpenAPI documents the public routes.
func (rt *Router) OpenAPI(info openapi3.Info) (*openapi3.T, error) {
	return rt.document(info, false)
}

// OpenAPIWithPrivate documents public and private routes.
func (rt *Router) OpenAPIWithPrivate(info openapi3.Info) (*openapi3.T, error) {
	return rt.document(info, true)
}

// SplitForParts returns the handler and the public document together.
func (rt *Router) SplitForParts(info openapi3.Info) (http.Handler, *openapi3.T, error) {
	doc, err := rt.OpenAPI(info)
	if err != nil {
		return nil, nil, err
	}
	return rt.Handler(), doc, nil
}

func (rt *Router) document(info openapi3.Info, private bool) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = "API"
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}
	doc := &openapi3.T{
		OpenAPI: OpenAPIVersion,
		Info:    &info,
		Paths:   openapi3.Paths{},
	}
	components := openapi3.Schemas{}
	for _, m := range rt.routes {
		if m.private && !private {
			continue
		}
		d := m.route.Doc()
		op, err := d.Operation(components)
		if err != nil {
			return nil, fmt.Errorf("autoroute: document %s: %w", m.route.Name(), err)
		}
		path := openAPIPath(d.Path)
		item := doc.Paths[path]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[path] = item
		}
		item.SetOperation(d.Method, op)
	}
	if len(components) > 0 {
		doc.Components = &openapi3.Components{Schemas: components}
	}
	return doc, nil
}

// openAPIPath turns ServeMux wildcards into OpenAPI templates.
func openAPIPath(p string) string {
	p = strings.TrimSuffix(p, "{$}")
	return strings.ReplaceAll(p, "...}", "}")
}
