package inspect

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

// maxBody caps PUT request bodies.
const maxBody = 1 << 20

// Server serves a store over HTTP. The store is confined behind a mutex;
// every handler holds it for the whole store operation, including the
// propagation a write triggers.
type Server struct {
	mu      sync.Mutex
	store   *reactive.Store
	hub     *Hub
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHub serves /watch from hub. The hub only sees events if its Observer
// is installed on the store.
func WithHub(h *Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a server for store. The caller must not use store directly
// once the server is handling requests; use Do instead.
func New(store *reactive.Store, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Do runs fn with exclusive access to the store.
func (s *Server) Do(fn func(*reactive.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Handler returns the HTTP routes.
//
//	GET  /health           {"status": "ok"}, or 503 once the store is closed
//	GET  /cells            all cells
//	GET  /cells/{id}       one cell
//	PUT  /cells/{id}       write a JSON value to an atom
//	POST /cells/{id}/undo  undo the last recorded write
//	GET  /edges            dependency edges
//	GET  /graph            Mermaid diagram (?highlight=1 marks the last propagation)
//	GET  /metrics          Prometheus metrics, when configured
//	GET  /watch            WebSocket event stream, when configured
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Get("/cells", s.listCells)
	r.Route("/cells/{id}", func(r chi.Router) {
		r.Get("/", s.getCell)
		r.Put("/", s.putCell)
		r.Post("/undo", s.undoCell)
	})
	r.Get("/edges", s.listEdges)
	r.Get("/graph", s.graph)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.hub != nil {
		r.Get("/watch", s.hub.HandleWebSocket)
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

type healthResponse struct {
	Status string `json:"status"`
	Cells  int    `json:"cells"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed, n := s.store.Closed(), s.store.Len()
	s.mu.Unlock()
	if closed {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "closed"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Cells: n})
}

func (s *Server) listCells(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cells := s.store.Cells()
	s.mu.Unlock()
	if cells == nil {
		cells = []reactive.CellInfo{}
	}
	writeJSON(w, http.StatusOK, cells)
}

func (s *Server) getCell(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	info, err := s.store.Cell(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// putCell decodes the body into the cell's own type and writes it.
func (s *Server) putCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, errors.New("E160").Wrap(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.store.TypeOf(id)
	if !ok {
		s.writeError(w, &reactive.Error{Op: "set", ID: id, Code: reactive.CodeMissingState})
		return
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(body, ptr.Interface()); err != nil {
		s.writeError(w, errors.New("E102").WithDetail("Body is not a JSON "+t.String()+" value.").Wrap(err))
		return
	}
	if err := reactive.SetAny(s.store, id, ptr.Elem().Interface()); err != nil {
		s.writeError(w, err)
		return
	}

	info, err := s.store.Cell(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type undoResponse struct {
	Restored bool              `json:"restored"`
	Cell     reactive.CellInfo `json:"cell"`
}

func (s *Server) undoCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	restored, err := reactive.UndoAny(s.store, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.store.Cell(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{Restored: restored, Cell: info})
}

func (s *Server) listEdges(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	edges := s.store.Edges()
	s.mu.Unlock()
	if edges == nil {
		edges = []reactive.Edge{}
	}
	writeJSON(w, http.StatusOK, edges)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	highlight := r.URL.Query().Get("highlight") != ""

	s.mu.Lock()
	text := s.store.Mermaid(highlight)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error *errors.Diagnostic `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	d := errors.FromError(err, "E160")
	status := statusFor(d.Code)
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: d})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "E101":
		return http.StatusNotFound
	case "E102":
		return http.StatusBadRequest
	case "E103", "E104", "E105":
		return http.StatusConflict
	case "E106":
		return http.StatusServiceUnavailable
	case "E107", "E108":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
