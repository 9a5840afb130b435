package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/transform"
)

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var c model.Client
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/clients", transform.ClientForm{Name: "Acme"}, &c))

	var p model.Project
	status := env.do(t, http.MethodPost, "/api/projects", transform.ProjectForm{
		ClientID:  c.ID,
		Name:      "Website",
		Budget:    "$12,500.50",
		StartDate: "2026-01-01",
		EndDate:   "2026-03-31",
	}, &p)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, p.Budget)
	assert.InDelta(t, 12500.50, *p.Budget, 0.001)
	require.NotNil(t, p.StartDate)
	assert.Equal(t, 2026, p.StartDate.Year())

	var list []model.Project
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/projects?client_id="+c.ID, nil, &list))
	require.Len(t, list, 1)

	var updated model.Project
	status = env.do(t, http.MethodPut, "/api/projects/"+p.ID, transform.ProjectForm{
		ClientID: c.ID,
		Name:     "Website v2",
		Status:   "active",
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Website v2", updated.Name)
	assert.Nil(t, updated.Budget)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/projects/"+p.ID, nil, nil))

	var apiErr APIError
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/projects/"+p.ID, nil, &apiErr))
	assert.Equal(t, "PROJECT_NOT_FOUND", apiErr.Code)
}

func TestCreateProjectErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		form      transform.ProjectForm
		wantField string
	}{
		{name: "unknown client", form: transform.ProjectForm{ClientID: "nope", Name: "X"}, wantField: "clientId"},
		{name: "bad budget", form: transform.ProjectForm{ClientID: "c", Name: "X", Budget: "lots"}, wantField: "budget"},
		{name: "end before start", form: transform.ProjectForm{
			ClientID: "c", Name: "X", StartDate: "2026-02-01", EndDate: "2026-01-01",
		}, wantField: "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr APIError
			assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/projects", tt.form, &apiErr))
			assert.Contains(t, apiErr.Fields, tt.wantField)
		})
	}
}
