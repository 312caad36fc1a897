package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/customizations"
	"github.com/jeffladiray/forest-vercel-test/internal/engine"
	"github.com/jeffladiray/forest-vercel-test/internal/testutil"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapters/memory"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Adapter) {
	t.Helper()
	s, db := testutil.Store(t)
	e, err := engine.New(engine.Config{
		Schema:    s,
		Customize: customizations.Apply(customizations.Options{ImpersonationURL: "https://admin.example.com/impersonate"}),
		Adapter:   db,
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	srv := httptest.NewServer(NewServer(Config{Engine: e, Logger: testutil.NewTestLogger(t)}).Handler())
	t.Cleanup(srv.Close)
	return srv, db
}

func do(t *testing.T, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCollections(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/collections", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var collections []CollectionInfo
	require.NoError(t, json.Unmarshal(body, &collections))
	require.Len(t, collections, 10)

	var users CollectionInfo
	for _, c := range collections {
		if c.Name == "users" {
			users = c
		}
	}
	var fullname FieldInfo
	for _, f := range users.Fields {
		if f.Name == "fullname" {
			fullname = f
		}
	}
	assert.Equal(t, "computed", fullname.Kind)
	assert.Equal(t, []core.Operator{core.OpContains, core.OpEqual}, fullname.Operators)
	assert.True(t, fullname.Sortable)
	assert.True(t, fullname.Writable)
	assert.Equal(t, []string{"firstname", "lastname"}, fullname.Dependencies)
	assert.Empty(t, fullname.ComputedFrom)
	assert.Contains(t, users.Actions, ActionInfo{Name: "Moderate", Scope: "Single"})
}

func TestList(t *testing.T) {
	srv, _ := newTestServer(t)
	query := url.Values{
		"fields": {"id,fullname"},
		"filter": {`{"field":"fullname","operator":"Contains","value":"J"}`},
		"sort":   {"-fullname"},
		"limit":  {"5"},
	}
	resp, body := do(t, http.MethodGet, srv.URL+"/collections/users?"+query.Encode(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `[{"id":2,"fullname":"John Smith"},{"id":1,"fullname":"Jane Doe"}]`, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/collections/orders?fields=amount_with_discount&skip=3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `[{"amount_with_discount":22}]`, string(body))
}

func TestList_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown collection", "/collections/invoices", http.StatusNotFound},
		{"unknown field", "/collections/users?fields=nickname", http.StatusBadRequest},
		{"malformed filter", "/collections/users?filter=%7B", http.StatusBadRequest},
		{"unsupported operator", "/collections/users?filter=" + url.QueryEscape(`{"field":"fullname","operator":"EndsWith","value":"e"}`), http.StatusBadRequest},
		{"unsortable", "/collections/orders?sort=amount_with_discount", http.StatusBadRequest},
		{"negative limit", "/collections/users?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, srv.URL+tt.target, "")
			assert.Equal(t, tt.status, resp.StatusCode)
			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestCreateAndUpdate(t *testing.T) {
	srv, db := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/collections/users", `[{"fullname":"Ada Lovelace"}]`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"firstname":"Ada"`)

	resp, body = do(t, http.MethodPatch, srv.URL+"/collections/users",
		`{"filter":{"field":"id","operator":"Equal","value":1},"patch":{"fullname":"Janet Roe"}}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))
	assert.Equal(t, "Roe", db.Rows("users")[0]["lastname"])

	resp, _ = do(t, http.MethodPatch, srv.URL+"/collections/users", `{"patch":{"firstname":"X"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "an update needs a filter")

	resp, _ = do(t, http.MethodPatch, srv.URL+"/collections/users",
		`{"filter":{"field":"id","operator":"Equal","value":1},"patch":{"fullname":"Janet"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActions(t *testing.T) {
	srv, db := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/collections/tickets/actions/"+url.PathEscape("Mark ticket(s) as resolved"),
		`{"ids":["1"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res map[string]any
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "Success", res["type"])
	assert.Equal(t, "Ticket(s) marked as resolved!", res["message"])
	assert.Equal(t, true, db.Rows("tickets")[0]["is_resolved"])

	resp, body = do(t, http.MethodGet, srv.URL+"/collections/users/actions/Moderate/form?ids=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var form []map[string]any
	require.NoError(t, json.Unmarshal(body, &form))
	require.Len(t, form, 3)
	assert.Equal(t, "Jane Doe", form[0]["value"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/collections/users/actions/Delete", `{"ids":["1"]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/collections/users/actions/Moderate", `{"ids":[1,2]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"type":"Error"`, "action failures are results")
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest(errors.New("bad json")), http.StatusBadRequest},
		{&core.WriteConflictError{Collection: "users", Field: "firstname"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &core.UnknownCollectionError{Name: "x"}), http.StatusNotFound},
		{&engine.UnknownActionError{Collection: "users", Action: "x"}, http.StatusNotFound},
		{core.NewStorageError("users", "read", errors.New("down")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
