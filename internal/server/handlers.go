package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FieldInfo describes a field of a collection.
type FieldInfo struct {
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Type         core.ColumnType `json:"type"`
	Operators    []core.Operator `json:"operators,omitempty"`
	Sortable     bool            `json:"sortable"`
	Writable     bool            `json:"writable"`
	Dependencies []string        `json:"dependencies,omitempty"`
	ComputedFrom []string        `json:"computed_from,omitempty"`
	UsedBy       []string        `json:"used_by,omitempty"`
}

// ActionInfo describes an action of a collection.
type ActionInfo struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// CollectionInfo describes a collection with its fields and actions.
type CollectionInfo struct {
	Name    string       `json:"name"`
	Fields  []FieldInfo  `json:"fields"`
	Actions []ActionInfo `json:"actions"`
}

// Describe lists the fields and actions of a collection.
func Describe(reg *registry.Registry, c *registry.Collection) CollectionInfo {
	info := CollectionInfo{Name: c.Name, Fields: []FieldInfo{}, Actions: []ActionInfo{}}
	for _, f := range c.Fields() {
		fi := FieldInfo{Name: f.Name, Kind: f.Kind.String(), Type: f.Type}
		if f.IsComputed() {
			fi.Operators = f.Operators()
			fi.Sortable = len(f.Sorting()) > 0
			fi.Writable = f.Writer() != nil
			fi.Dependencies = f.PhysicalDependencies()
			fi.ComputedFrom = reg.ComputedUpstream(c.Name, f.Name)
			fi.UsedBy = reg.Dependents(c.Name, f.Name)
		} else {
			fi.Sortable = true
			fi.Writable = true
		}
		info.Fields = append(info.Fields, fi)
	}
	for _, name := range c.ActionNames() {
		def, _ := c.Action(name)
		info.Actions = append(info.Actions, ActionInfo{Name: name, Scope: string(def.Scope)})
	}
	return info
}

func (s *Server) handleCollections(w http.ResponseWriter, _ *http.Request) {
	reg := s.engine.Registry()
	collections := reg.Collections()
	out := make([]CollectionInfo, len(collections))
	for i, c := range collections {
		out[i] = Describe(reg, c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, fields, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	records, err := s.engine.List(r.Context(), chi.URLParam(r, "collection"), filter, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// parseListQuery reads fields, filter, sort, skip and limit.
func parseListQuery(r *http.Request) (core.PaginatedFilter, []string, error) {
	q := r.URL.Query()
	var filter core.PaginatedFilter

	fields := splitList(q.Get("fields"))
	tree, err := core.UnmarshalConditionTree([]byte(q.Get("filter")))
	if err != nil {
		return filter, nil, err
	}
	filter.ConditionTree = tree
	if filter.Sort, err = core.ParseSort(q.Get("sort")); err != nil {
		return filter, nil, err
	}

	skip, err := intParam(q.Get("skip"), "skip")
	if err != nil {
		return filter, nil, err
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return filter, nil, err
	}
	if skip > 0 || limit > 0 {
		filter.Page = &core.Page{Skip: skip, Limit: limit}
	}
	return filter, fields, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var records []core.Record
	if err := decodeBody(r, &records); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.engine.Create(r.Context(), chi.URLParam(r, "collection"), records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	Filter json.RawMessage `json:"filter"`
	Patch  core.Record     `json:"patch"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, err := core.UnmarshalConditionTree(req.Filter)
	if err != nil {
		s.writeError(w, r, badRequest(err))
		return
	}
	if tree == nil {
		// Updating every record takes an explicit filter.
		s.writeError(w, r, badRequest(errors.New("filter is required")))
		return
	}
	if err := s.engine.Update(r.Context(), chi.URLParam(r, "collection"), tree, req.Patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type actionRequest struct {
	IDs    []any          `json:"ids"`
	Values map[string]any `json:"values"`
}

func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.engine.ExecuteAction(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "action"), req.IDs, req.Values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActionForm(w http.ResponseWriter, r *http.Request) {
	var ids []any
	for _, id := range splitList(r.URL.Query().Get("ids")) {
		ids = append(ids, id)
	}
	var values map[string]any
	if raw := r.URL.Query().Get("values"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			s.writeError(w, r, badRequest(fmt.Errorf("invalid values: %w", err)))
			return
		}
	}
	form, err := s.engine.ActionForm(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "action"), ids, values)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}
