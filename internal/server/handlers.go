package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/sqlfront/internal/cli/output"
	"github.com/leapstack-labs/sqlfront/pkg/ast"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/leapstack-labs/sqlfront/pkg/changefeed"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/format"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 30 * time.Second
)

// Request is the body of the SQL endpoints. Empty fields fall back to the
// server defaults.
type Request struct {
	SQL       string `json:"sql"`
	Dialect   string `json:"dialect,omitempty"`
	ToDialect string `json:"to_dialect,omitempty"`
	Indent    *int   `json:"indent,omitempty"`
	// Kind parses the input as a single node of this kind (parse only).
	Kind string `json:"kind,omitempty"`
}

// errorResponse wraps a diagnostic.
type errorResponse struct {
	Error output.Diagnostic `json:"error"`
}

func (s *Server) routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/dialects", s.handleDialects)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout), middleware.AllowContentType("application/json"))
			r.Post("/tokens", s.handleTokens)
			r.Post("/parse", s.handleParse)
			r.Post("/format", s.handleFormat)
			r.Post("/canonicalize", s.handleCanonicalize)
			r.Post("/changes", s.handleChange)
		})

		r.Get("/changes/stream", s.handleStream)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: output.NewDiagnostic(err)})
}

// decodeBody reads a JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// options resolves the parse and render settings of req.
func (s *Server) options(req Request) (parser.Options, format.Context, error) {
	from := s.cfg.Dialect
	if req.Dialect != "" {
		d, err := dialect.Lookup(req.Dialect)
		if err != nil {
			return parser.Options{}, format.Context{}, err
		}
		from = d
	}
	to := s.cfg.ToDialect
	if req.ToDialect != "" {
		d, err := dialect.Lookup(req.ToDialect)
		if err != nil {
			return parser.Options{}, format.Context{}, err
		}
		to = d
	}
	indent := s.cfg.IndentWidth
	if req.Indent != nil {
		if *req.Indent < 0 {
			return parser.Options{}, format.Context{}, fmt.Errorf("indent must not be negative, got %d", *req.Indent)
		}
		indent = *req.Indent
	}
	popts := parser.Options{Dialect: from, MaxDepth: s.cfg.MaxDepth, Logger: s.logger}
	return popts, format.Context{Dialect: from, ToDialect: to, IndentWidth: indent}, nil
}

// readRequest decodes and resolves a SQL request, writing the error
// response itself when it fails.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (Request, parser.Options, format.Context, bool) {
	var req Request
	if !decodeBody(w, r, &req) {
		return req, parser.Options{}, format.Context{}, false
	}
	popts, fctx, err := s.options(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, popts, fctx, false
	}
	return req, popts, fctx, true
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"dialects": dialect.List(),
		"default":  s.cfg.Dialect.Name,
	})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	req, popts, _, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	tokens := []output.TokenView{}
	for tok, err := range parser.Tokenize(parser.Text(req.SQL), parser.TokenizeOptions{
		Dialect:          popts.Dialect,
		EmitComments:     true,
		StructuredBlocks: true,
	}) {
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		tokens = append(tokens, output.ViewToken(tok))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (s *Server) parse(req Request, popts parser.Options) (*ast.Node, error) {
	if req.Kind != "" {
		return parser.ParseKind(req.Kind, req.SQL, popts)
	}
	return parser.Parse(req.SQL, popts)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, popts, _, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	tree, err := s.parse(req, popts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": ast.ToPortable(tree)})
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	req, popts, fctx, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	tree, err := s.parse(req, popts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	text, err := format.Stringify(tree, fctx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sql": text})
}

func (s *Server) handleCanonicalize(w http.ResponseWriter, r *http.Request) {
	req, popts, fctx, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	tree, err := s.parse(req, popts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	canonical, err := canon.Canonicalize(tree, fctx, s.cfg.Transform)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	text, err := format.Tree(canonical, fctx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": canonical, "sql": text})
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !decodeBody(w, r, &raw) {
		return
	}
	ev, err := changefeed.Decode(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err = s.feed.Deliver(r.Context(), ev)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": ev.ID})
}

// handleStream streams delivered change events as signal patches, one per
// event, optionally filtered by ?table=.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	ch := s.notifier.Subscribe(0)
	defer s.notifier.Unsubscribe(ch)

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if table != "" && ev.Table != table {
				continue
			}
			if err := sse.MarshalAndPatchSignals(map[string]any{"change": ev}); err != nil {
				s.logger.Debug("stream closed", "error", err)
				return
			}
		}
	}
}
