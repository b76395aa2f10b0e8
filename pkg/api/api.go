package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/quillium/papersearch/pkg/index"
	"github.com/quillium/papersearch/pkg/model"
	"github.com/quillium/papersearch/pkg/query"
)

// Searcher is the slice of the index session the API needs.
type Searcher interface {
	Search(ctx context.Context, body map[string]interface{}, from int, size int) ([]model.Document, int64, error)
	GetDocument(ctx context.Context, paperIDv string) (model.Document, error)
	CurrentVersion(ctx context.Context, paperID string) (model.Document, error)
}

// Server exposes the read-side query API over HTTP.
type Server struct {
	searcher Searcher
	builder  *query.Builder
	planner  query.Planner
	logger   *logrus.Entry
}

func NewServer(logger *logrus.Entry, searcher Searcher, builder *query.Builder) *Server {
	return &Server{
		searcher: searcher,
		builder:  builder,
		planner:  query.NewPlanner(),
		logger:   logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/papers", s.searchPapers)
	r.Get("/papers/{id}", s.getPaper)
	r.Get("/status", s.status)

	return r
}

type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorEnvelope{Code: code, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorf("could not write response: %s", err)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// searchPapers handles GET /papers. Malformed parameters are the client's
// problem (400); an unreachable engine is ours (502).
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	req := query.Request{
		Query:                params.Get("query"),
		Field:                params.Get("field"),
		PrimaryCategories:    params["primary_category"],
		Order:                params.Get("order"),
		Cursor:               params.Get("cursor"),
		IncludeOlderVersions: params.Get("include_older_versions") == "true",
	}

	start, err := intParam(params, "start", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	size, err := intParam(params, "size", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	//cursor traversal always reads from the top of the remaining set
	if req.Cursor != "" {
		start = 0
	}

	window, err := s.planner.Plan(start, size)
	if err != nil {
		var depth *query.DepthError
		if errors.As(err, &depth) {
			s.writeError(w, http.StatusBadRequest, depth.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := s.builder.Build(req)
	if err != nil {
		var qerr *query.Error
		if errors.As(err, &qerr) {
			s.writeError(w, http.StatusBadRequest, qerr.Message)
			return
		}
		s.logger.Errorf("could not build query: %s", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	docs, total, err := s.searcher.Search(r.Context(), body, window.From, window.Size)
	if err != nil {
		s.logger.Errorf("search failed: %s", err)
		s.writeError(w, http.StatusBadGateway, "search engine unavailable")
		return
	}

	set := model.DocumentSet{
		Metadata: model.SetMetadata{
			Query:      req.Query,
			Total:      total,
			Start:      window.From,
			Size:       window.Size,
			Pagination: s.paginationLinks(r.URL, req, window, docs, total),
		},
		Results: docs,
	}
	s.writeJSON(w, set)
}

// paginationLinks derives next/previous links for the result page. Offset
// links stay within the engine's result window; past it the next link
// switches to a cursor, which only exists for the default date ordering.
func (s *Server) paginationLinks(u *url.URL, req query.Request, window query.Window, docs []model.Document, total int64) model.Pagination {
	var p model.Pagination

	if req.Cursor != "" {
		if len(docs) == window.Size {
			p.Next = cursorLink(u, query.EncodeCursor(docs[len(docs)-1]), window.Size)
		}
		return p
	}

	if window.From > 0 {
		prev := window.From - window.Size
		if prev < 0 {
			prev = 0
		}
		p.Previous = offsetLink(u, prev, window.Size)
	}

	next := window.From + window.Size
	if int64(next) >= total {
		return p
	}
	if next+window.Size <= query.MaxResultWindow {
		p.Next = offsetLink(u, next, window.Size)
	} else if req.Order == "" && req.Query == "" && len(docs) > 0 {
		p.Next = cursorLink(u, query.EncodeCursor(docs[len(docs)-1]), window.Size)
	}
	return p
}

func offsetLink(u *url.URL, start, size int) string {
	link := *u
	params := link.Query()
	params.Set("start", strconv.Itoa(start))
	params.Set("size", strconv.Itoa(size))
	params.Del("cursor")
	link.RawQuery = params.Encode()
	return link.RequestURI()
}

func cursorLink(u *url.URL, cursor string, size int) string {
	link := *u
	params := link.Query()
	params.Del("start")
	params.Set("size", strconv.Itoa(size))
	params.Set("cursor", cursor)
	link.RawQuery = params.Encode()
	return link.RequestURI()
}

// getPaper handles GET /papers/{id}. A versioned id is a direct lookup; a
// versionless id resolves to the paper's current version.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	id = strings.TrimSpace(id)
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing paper id")
		return
	}

	var doc model.Document
	var err error
	if _, version := model.SplitID(id); version > 0 {
		doc, err = s.searcher.GetDocument(r.Context(), id)
	} else {
		doc, err = s.searcher.CurrentVersion(r.Context(), id)
	}

	switch {
	case err == nil:
		s.writeJSON(w, doc)
	case errors.Is(err, index.ErrNotFound):
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("paper %s not found", id))
	default:
		s.logger.Errorf("lookup of %s failed: %s", id, err)
		s.writeError(w, http.StatusBadGateway, "search engine unavailable")
	}
}

func intParam(params url.Values, name string, fallback int) (int, error) {
	raw := params.Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s must be an integer", name)
	}
	return value, nil
}
