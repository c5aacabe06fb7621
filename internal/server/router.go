// Package server wires the Router/Dispatcher component (spec §4.2): gin's
// native path matching, driven by the declarative permission levels in
// routes.yaml and fronted by the Auth Gate middleware.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/handlers"
	"github.com/ganesh47/cf-metadata-sys/internal/middleware"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/apierr"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/ctxutil"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/respond"
)

// Handlers bundles every handler the router dispatches to. Built once in
// main and threaded through here so router wiring stays purely mechanical.
type Handlers struct {
	Node         *handlers.NodeHandler
	Edge         *handlers.EdgeHandler
	Query        *handlers.QueryHandler
	Traverse     *handlers.TraverseHandler
	Snapshot     *handlers.SnapshotHandler
	AuthCallback *handlers.AuthCallbackHandler
}

// NewRouter builds the gin engine: CORS, the unauthenticated /healthcheck
// and /auth/callback routes, the authenticated-but-unscoped /orgs route,
// and every org-scoped route declared in routes.yaml, each gated by
// RequireAuth + RequireLevel(<declared level>).
func NewRouter(auth *middleware.AuthMiddleware, h Handlers, corsOrigins []string, log *logger.Logger) (*gin.Engine, error) {
	rt, err := loadRouteTable()
	if err != nil {
		return nil, err
	}

	engine := gin.Default()

	// A matched pattern under a method it doesn't support must answer 405,
	// not gin's default 404 (spec §4.2, §6.1, §7 MethodUnknown). Since every
	// routes.yaml pattern is registered for each of its declared methods via
	// engine.Handle below, gin's own per-method trees already carry enough
	// information to tell "no such route" apart from "route exists, wrong
	// method" — this just asks gin to surface that distinction.
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		respond.Error(c, ctxutil.RequestID(c.Request.Context()), apierr.New(http.StatusMethodNotAllowed, "method_unknown", fmt.Errorf("method not allowed for %s", c.Request.URL.Path)))
	})
	engine.NoRoute(func(c *gin.Context) {
		respond.Error(c, ctxutil.RequestID(c.Request.Context()), apierr.New(http.StatusNotFound, "route_unknown", fmt.Errorf("no such route: %s", c.Request.URL.Path)))
	})

	engine.Use(middleware.AttachRequestContext())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(corsOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	engine.Use(cors.New(corsCfg))

	engine.GET("/healthcheck", handlers.HealthCheck)
	engine.GET("/auth/callback", h.AuthCallback.Run)

	engine.GET("/orgs", auth.RequireAuth(), handlers.Orgs)

	for pattern, bindings := range routeBindings(h) {
		for method, handlerFn := range bindings {
			level, err := rt.levelFor(pattern, method)
			if err != nil {
				return nil, fmt.Errorf("build router: %w", err)
			}
			engine.Handle(method, pattern, auth.RequireAuth(), middleware.RequireLevel(level), handlerFn)
		}
	}

	log.Info("router initialized", "routes", len(rt.entries))
	return engine, nil
}

// routeBindings maps each routes.yaml pattern+method to the concrete
// handler it dispatches to. Kept separate from routes.yaml itself so the
// declarative table stays purely about permission levels.
func routeBindings(h Handlers) map[string]map[string]gin.HandlerFunc {
	return map[string]map[string]gin.HandlerFunc{
		"/:org/nodes": {
			"GET":  h.Node.List,
			"POST": h.Node.Create,
		},
		"/:org/nodes/:id": {
			"GET":    h.Node.Get,
			"PUT":    h.Node.Update,
			"DELETE": h.Node.Delete,
		},
		"/:org/edges": {
			"GET": h.Edge.List,
		},
		"/:org/edge": {
			"POST": h.Edge.Create,
		},
		"/:org/edge/:id": {
			"GET":    h.Edge.Get,
			"PUT":    h.Edge.Update,
			"PATCH":  h.Edge.Update,
			"DELETE": h.Edge.Delete,
		},
		"/:org/query": {
			"POST": h.Query.Run,
		},
		"/:org/traverse": {
			"POST": h.Traverse.Run,
		},
		"/:org/metadata/export": {
			"GET": h.Snapshot.Export,
		},
		"/:org/metadata/import": {
			"POST": h.Snapshot.Import,
		},
	}
}
