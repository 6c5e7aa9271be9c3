// Package httpapi serves generation runs and stored components over HTTP.
//
// Routes:
//
//	GET  /v1/healthz
//	POST /v1/runs                          body: DSL source, or JSON with Content-Type application/json
//	GET  /v1/runs/{run}/graph?format=dot   dot (default) or svg
//	GET  /v1/components?kind=&panel=&run=
//	GET  /v1/components/{id}
//	GET  /v1/components/{id}/mesh?local=true
//	GET  /v1/panels/{panel}/preview.png?size=512
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/engine"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/graph"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/pipeline"
	"github.com/chazu/cassette/pkg/preview"
	"github.com/chazu/cassette/pkg/store"
	"github.com/chazu/cassette/pkg/tessellate"
)

// MaxProgramBytes bounds the size of a posted program.
const MaxProgramBytes = 1 << 20

// Server exposes a store and the generation pipeline.
type Server struct {
	Logger      *log.Logger
	Store       store.Store
	Kernel      kernel.Kernel
	Settings    config.GeometrySettings
	Concurrency int

	router chi.Router
}

// New creates a server. A nil logger falls back to log.Default().
func New(st store.Store, k kernel.Kernel, s config.GeometrySettings, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	srv := &Server{
		Logger:      logger,
		Store:       st,
		Kernel:      k,
		Settings:    s,
		Concurrency: pipeline.DefaultConcurrency,
	}
	srv.routes()
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	s.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("shutting down")
		return hs.Shutdown(shutdown)
	}
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs/{run}/graph", s.handleRunGraph)
		r.Get("/components", s.handleListComponents)
		r.Get("/components/{id}", s.handleGetComponent)
		r.Get("/components/{id}/mesh", s.handleComponentMesh)
		r.Get("/panels/{panel}/preview.png", s.handlePreview)
	})
	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()))
	})
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDegenerateAngle, errors.ErrCodeIntersection, errors.ErrCodeTopologyMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: code})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "kernel": s.Kernel.Name()})
}

type failureResponse struct {
	Component string      `json:"component"`
	Stage     string      `json:"stage"`
	Code      errors.Code `json:"code"`
	Error     string      `json:"error"`
}

type runResponse struct {
	RunID      string                 `json:"runId"`
	Panels     []pipeline.PanelReport `json:"panels"`
	Joints     []pipeline.JointReport `json:"joints"`
	Failures   []failureResponse      `json:"failures"`
	Components int                    `json:"components"`
	Durations  map[string]string      `json:"durations"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxProgramBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read program"))
		return
	}
	name := "request.lisp"
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		name = "request.json"
	}

	prog, err := engine.NewEngine(s.Settings).Parse(name, body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	topo, err := prog.Topology()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	runner := pipeline.NewRunner(s.Store, s.Kernel, prog.Settings,
		pipeline.WithLogger(s.Logger),
		pipeline.WithConcurrency(s.Concurrency))
	res, err := runner.Run(r.Context(), topo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := runResponse{
		RunID:     res.RunID,
		Panels:    res.Panels,
		Joints:    res.Joints,
		Failures:  make([]failureResponse, 0, len(res.Failures)),
		Durations: make(map[string]string, len(res.Durations)),
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, failureResponse{
			Component: f.Component,
			Stage:     string(f.Stage),
			Code:      f.Code,
			Error:     errors.UserMessage(f.Err),
		})
	}
	for stage, d := range res.Durations {
		resp.Durations[string(stage)] = d.String()
	}
	if res.Graph != nil {
		resp.Components = res.Graph.NodeCount()
	}
	w.Header().Set("Location", "/v1/components?run="+res.RunID)
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{Panel: q.Get("panel"), RunID: q.Get("run")}
	if k := q.Get("kind"); k != "" {
		kind, err := component.ParseKind(k)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.Kind = kind
	}
	recs, err := s.Store.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []component.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleComponentMesh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := component.Decode(rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	solid, ok := c.(component.Solidifier)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "%s %s has no volume", rec.Kind, id))
		return
	}
	local, _ := strconv.ParseBool(r.URL.Query().Get("local"))
	mesh, err := tessellate.Component(s.Kernel, solid, local)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeKernelOperation, err, "mesh %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, mesh)
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	run := chi.URLParam(r, "run")
	recs, err := s.Store.List(r.Context(), store.Filter{RunID: run})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(recs) == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "run %q has no components", run))
		return
	}
	g, err := graph.FromRecords(recs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dot := graph.ToDOT(g)

	switch format := r.URL.Query().Get("format"); format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
	case "svg":
		svg, err := graph.RenderSVG(r.Context(), dot)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown graph format %q", format))
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts := preview.DefaultOptions()
	if v := r.URL.Query().Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 16 || size > 4096 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "size must be an integer in [16, 4096]"))
			return
		}
		opts.Width, opts.Height = size, size
		opts.Margin = float64(size) / 32
	}
	p, beams, err := preview.Load(r.Context(), s.Store, chi.URLParam(r, "panel"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, p, beams, opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = buf.WriteTo(w)
}
