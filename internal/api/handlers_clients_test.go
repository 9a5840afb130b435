package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/transform"
)

func TestClientLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var created model.Client
	status := env.do(t, http.MethodPost, "/api/clients", transform.ClientForm{
		Name:  "  Acme Corp ",
		Email: "Billing@Acme.example",
		Tags:  "vip, retail,vip",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme Corp", created.Name)
	assert.Equal(t, "billing@acme.example", created.Email)
	assert.Equal(t, model.ClientActive, created.Status)
	assert.Equal(t, []string{"vip", "retail"}, created.Tags)

	var got model.Client
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clients/"+created.ID, nil, &got))
	assert.Equal(t, created.ID, got.ID)

	var updated model.Client
	status = env.do(t, http.MethodPut, "/api/clients/"+created.ID, transform.ClientForm{
		Name:   "Acme Corporation",
		Status: "inactive",
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Acme Corporation", updated.Name)
	assert.Equal(t, model.ClientInactive, updated.Status)

	var list []model.Client
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clients?search=corporation", nil, &list))
	require.Len(t, list, 1)

	var projects []model.Project
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clients/"+created.ID+"/projects", nil, &projects))
	assert.Empty(t, projects)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/clients/"+created.ID, nil, nil))

	var apiErr APIError
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/clients/"+created.ID, nil, &apiErr))
	assert.Equal(t, "CLIENT_NOT_FOUND", apiErr.Code)
}

func TestCreateClientErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{name: "missing name", body: transform.ClientForm{Email: "a@b.example"}, wantField: "name"},
		{name: "bad email", body: transform.ClientForm{Name: "A", Email: "not-an-email"}, wantField: "email"},
		{name: "unknown field", body: map[string]any{"name": "A", "nickname": "x"}, wantField: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr APIError
			status := env.do(t, http.MethodPost, "/api/clients", tt.body, &apiErr)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
			assert.Contains(t, apiErr.Fields, tt.wantField)
		})
	}
}

func TestListClientsBadPaging(t *testing.T) {
	env := newTestEnv(t)

	var apiErr APIError
	status := env.do(t, http.MethodGet, "/api/clients?limit=-1", nil, &apiErr)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, apiErr.Fields, "limit")
}

func TestDeleteClientWithProjects(t *testing.T) {
	env := newTestEnv(t)

	var c model.Client
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/clients", transform.ClientForm{Name: "Acme"}, &c))
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/projects", transform.ProjectForm{
		ClientID: c.ID,
		Name:     "Website",
	}, nil))

	var apiErr APIError
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/clients/"+c.ID, nil, &apiErr))
	assert.Equal(t, "CONFLICT", apiErr.Code)
}
