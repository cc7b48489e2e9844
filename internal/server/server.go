// Package server exposes the guard manager over HTTP and WebSocket.
package server

import (
	"errors"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/manager"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server serves one manager, policy snapshot and default guard list.
type Server struct {
	manager *manager.Manager
	policy  *policy.Policy
	guards  []guard.Guard
	logger  zerolog.Logger
}

// New returns a Server. guards is used when a request names none.
func New(m *manager.Manager, pol *policy.Policy, guards []guard.Guard, logger zerolog.Logger) *Server {
	return &Server{
		manager: m,
		policy:  pol,
		guards:  append([]guard.Guard(nil), guards...),
		logger:  logger,
	}
}

// Container returns the restful container with every route registered,
// including the OpenAPI document at /apidocs.json and the /ws stream.
func (s *Server) Container() *restful.Container {
	container := restful.NewContainer()
	container.Filter(s.logRequests)
	container.Filter(s.recoverPanic)
	s.registerRoutes(container)

	config := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(config))
	container.Handle("/ws", http.HandlerFunc(s.stream))
	return container
}

// Handler wraps Container with CORS.
func (s *Server) Handler() http.Handler {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(s.Container())
}

// HTTPServer returns an http.Server for addr serving Handler.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) registerRoutes(container *restful.Container) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(s.health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("process").
			To(s.process).
			Doc("Run text through the guards").
			Metadata(restfulspec.KeyOpenAPITags, []string{"process"}).
			Reads(ProcessRequest{}).
			Writes(ProcessResponse{}).
			Returns(200, "OK", ProcessResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.
		Route(ws.GET("guards").
			To(s.listGuards).
			Doc("List the default guard chain").
			Metadata(restfulspec.KeyOpenAPITags, []string{"guards"}).
			Writes(GuardsResponse{}).
			Returns(200, "OK", GuardsResponse{}))

	ws.
		Route(ws.GET("audit/verify").
			To(s.verify).
			Doc("Verify the audit hash chain").
			Metadata(restfulspec.KeyOpenAPITags, []string{"audit"}).
			Param(ws.QueryParameter("from", "First sequence number").DataType("integer").Required(false)).
			Param(ws.QueryParameter("to", "Sequence number to stop before").DataType("integer").Required(false)).
			Writes(VerifyResponse{}).
			Returns(200, "OK", VerifyResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(409, "Chain Broken", VerifyResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	container.Add(ws)
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "SafeLayer API",
			Description: "Guard orchestration with a tamper-evident audit log",
			Version:     Version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "process", Description: "Guarded text processing"}},
		{TagProps: spec.TagProps{Name: "guards", Description: "Guard registry"}},
		{TagProps: spec.TagProps{Name: "audit", Description: "Audit log integrity"}},
	}
}

func (s *Server) logRequests(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	s.logger.Info().
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("request")
}

func (s *Server) recoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("path", req.Request.URL.Path).
				Msg("handler panicked")
			writeError(resp, errors.New("internal error"), http.StatusInternalServerError)
		}
	}()
	chain.ProcessFilter(req, resp)
}

func writeError(resp *restful.Response, err error, code int) {
	_ = resp.WriteHeaderAndEntity(code, ErrorResponse{Error: err.Error(), Code: code})
}
