// Package postgresttest runs an in-memory PostgREST look-alike for tests.
// It serves one products table and its active_products view and answers
// schema problems with the same status codes and messages as the real server.
package postgresttest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultKey = "test-anon-key"
	Table      = "products"
	View       = "active_products"
)

// Options shape the schema the fake pretends to have.
type Options struct {
	Key      string
	RestPath string
	// NoActiveFlag drops the isActive column from the table.
	NoActiveFlag bool
	// NoActiveView drops the active_products view.
	NoActiveView bool
	// ExtraColumns are accepted on writes besides the standard ones, e.g. "price".
	ExtraColumns []string
}

// Request is a request as the fake received it.
type Request struct {
	Method   string
	Relation string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

type failure struct {
	status int
	body   string
}

// Server is the fake store.
type Server struct {
	*httptest.Server

	opts Options

	mu       sync.Mutex
	rows     []map[string]any
	requests []Request
	failures map[string][]failure
}

// NewServer starts a fake store and registers its shutdown with t.Cleanup when t is not nil.
func NewServer(t interface{ Cleanup(func()) }, opts Options) *Server {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.RestPath == "" {
		opts.RestPath = "/rest/v1"
	}
	s := &Server{opts: opts, failures: make(map[string][]failure)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

// Key returns the access key the fake accepts.
func (s *Server) Key() string { return s.opts.Key }

// Seed inserts rows as given, without any column checks.
func (s *Server) Seed(rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows = append(s.rows, clone(r))
	}
}

// Rows returns a copy of the table contents.
func (s *Server) Rows() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, clone(r))
	}
	return out
}

// Row returns the first row named name.
func (s *Server) Row(name string) (map[string]any, bool) {
	for _, r := range s.Rows() {
		if r["product_name"] == name {
			return r, true
		}
	}
	return nil, false
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// ResetRequests forgets the recorded requests.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request with method to relation answer status with
// a PostgREST error body carrying message. An empty message answers with an empty body.
func (s *Server) FailNext(method, relation string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := ""
	if message != "" {
		b, _ := json.Marshal(map[string]any{"code": "XX000", "message": message, "hint": nil, "details": nil})
		body = string(b)
	}
	key := method + " " + relation
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	relation := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, s.opts.RestPath), "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Relation: relation,
		Query:    r.URL.Query(),
		Header:   r.Header.Clone(),
		Body:     body,
	})

	if r.Header.Get("apikey") != s.opts.Key || r.Header.Get("Authorization") != "Bearer "+s.opts.Key {
		writeError(w, http.StatusUnauthorized, "PGRST301", "Invalid API key")
		return
	}
	key := r.Method + " " + relation
	if queued := s.failures[key]; len(queued) > 0 {
		f := queued[0]
		s.failures[key] = queued[1:]
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
		return
	}

	switch {
	case relation == Table:
	case relation == View && !s.opts.NoActiveView && r.Method == http.MethodGet:
	default:
		writeError(w, http.StatusNotFound, "PGRST205",
			fmt.Sprintf("Could not find the table 'public.%s' in the schema cache", relation))
		return
	}

	query := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		s.handleSelect(w, relation, query)
	case http.MethodPost:
		s.handleInsert(w, r, query, body)
	case http.MethodPatch:
		s.handleUpdate(w, query, body)
	case http.MethodDelete:
		s.handleDelete(w, query)
	default:
		writeError(w, http.StatusMethodNotAllowed, "PGRST117", "Unsupported HTTP method: "+r.Method)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, relation string, query url.Values) {
	matched, ok := s.filter(w, query)
	if !ok {
		return
	}
	if relation == View {
		var active []map[string]any
		for _, r := range matched {
			if r["isActive"] != false {
				active = append(active, r)
			}
		}
		matched = active
	}
	if order := query.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := fmt.Sprint(matched[i][col]), fmt.Sprint(matched[j][col])
			if dir == "desc" {
				return a > b
			}
			return a < b
		})
	}
	if limit := query.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n < len(matched) {
			matched = matched[:n]
		}
	}
	columns, bad := s.columns(query.Get("select"))
	if bad != "" {
		writeError(w, http.StatusBadRequest, "42703", fmt.Sprintf("column %s.%s does not exist", Table, bad))
		return
	}
	out := make([]map[string]any, 0, len(matched))
	for _, r := range matched {
		out = append(out, project(r, columns))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request, query url.Values, body []byte) {
	incoming, ok := decodeRows(w, body)
	if !ok {
		return
	}
	for _, row := range incoming {
		if !s.checkColumns(w, row) {
			return
		}
	}
	prefer := r.Header.Get("Prefer")
	merge := strings.Contains(prefer, "resolution=merge-duplicates")
	conflict := query.Get("on_conflict")
	if conflict == "" {
		conflict = "product_id"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var written []map[string]any
	for _, row := range incoming {
		if merge {
			if existing := s.find(conflict, row[conflict]); existing != nil {
				for k, v := range row {
					existing[k] = v
				}
				written = append(written, clone(existing))
				continue
			}
		}
		stored := clone(row)
		if _, ok := stored["created_at"]; !ok {
			stored["created_at"] = now
		}
		if _, ok := stored["isActive"]; !ok && !s.opts.NoActiveFlag {
			stored["isActive"] = true
		}
		s.rows = append(s.rows, stored)
		written = append(written, clone(stored))
	}
	if strings.Contains(prefer, "return=representation") {
		writeJSON(w, http.StatusCreated, written)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, query url.Values, body []byte) {
	var patch map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json")
		return
	}
	if !s.checkColumns(w, patch) {
		return
	}
	matched, ok := s.filter(w, query)
	if !ok {
		return
	}
	out := make([]map[string]any, 0, len(matched))
	for _, r := range matched {
		for k, v := range patch {
			r[k] = v
		}
		out = append(out, clone(r))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, query url.Values) {
	matched, ok := s.filter(w, query)
	if !ok {
		return
	}
	s.rows = slices.DeleteFunc(s.rows, func(r map[string]any) bool {
		return slices.ContainsFunc(matched, func(m map[string]any) bool { return sameRow(m, r) })
	})
	w.WriteHeader(http.StatusNoContent)
}

// filter applies the eq filters of query and returns the live matching rows.
func (s *Server) filter(w http.ResponseWriter, query url.Values) ([]map[string]any, bool) {
	matched := slices.Clone(s.rows)
	for col, values := range query {
		switch col {
		case "select", "order", "limit", "on_conflict":
			continue
		}
		if !s.hasColumn(col) {
			writeError(w, http.StatusBadRequest, "42703", fmt.Sprintf("column %s.%s does not exist", Table, col))
			return nil, false
		}
		want, ok := strings.CutPrefix(values[0], "eq.")
		if !ok {
			writeError(w, http.StatusBadRequest, "PGRST100", "unsupported filter "+values[0])
			return nil, false
		}
		matched = slices.DeleteFunc(matched, func(r map[string]any) bool {
			v, present := r[col]
			return !present || v == nil || fmt.Sprint(v) != want
		})
	}
	return matched, true
}

// columns parses a select list. A nil result means every column.
// The second result names the first unknown column.
func (s *Server) columns(selected string) ([]string, string) {
	if selected == "" || selected == "*" {
		return nil, ""
	}
	var cols []string
	for _, col := range strings.Split(selected, ",") {
		col = strings.TrimSpace(col)
		if !s.hasColumn(col) {
			return nil, col
		}
		cols = append(cols, col)
	}
	return cols, ""
}

func project(r map[string]any, columns []string) map[string]any {
	if columns == nil {
		return clone(r)
	}
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		out[col] = r[col]
	}
	return out
}

func (s *Server) checkColumns(w http.ResponseWriter, row map[string]any) bool {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !s.hasColumn(col) {
			writeError(w, http.StatusBadRequest, "PGRST204",
				fmt.Sprintf("Could not find the '%s' column of '%s' in the schema cache", col, Table))
			return false
		}
	}
	return true
}

func (s *Server) hasColumn(col string) bool {
	switch col {
	case "product_id", "product_name", "quantity", "cost", "created_at":
		return true
	case "isActive":
		return !s.opts.NoActiveFlag
	}
	return slices.Contains(s.opts.ExtraColumns, col)
}

func (s *Server) find(col string, value any) map[string]any {
	for _, r := range s.rows {
		if fmt.Sprint(r[col]) == fmt.Sprint(value) {
			return r
		}
	}
	return nil
}

func decodeRows(w http.ResponseWriter, body []byte) ([]map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json")
		return nil, false
	}
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}, true
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				writeError(w, http.StatusBadRequest, "PGRST102", "All object keys must match")
				return nil, false
			}
			rows = append(rows, m)
		}
		return rows, true
	default:
		writeError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json")
		return nil, false
	}
}

func sameRow(a, b map[string]any) bool {
	return fmt.Sprint(a["product_id"]) == fmt.Sprint(b["product_id"]) &&
		fmt.Sprint(a["product_name"]) == fmt.Sprint(b["product_name"])
}

func clone(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "message": message, "hint": nil, "details": nil})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
