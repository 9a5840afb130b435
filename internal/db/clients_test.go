package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/model"
)

func seedClient(t *testing.T, d *DB, name string) *model.Client {
	t.Helper()
	c := &model.Client{Name: name, Status: model.ClientActive}
	require.NoError(t, d.CreateClient(context.Background(), c))
	return c
}

func TestClientCRUD(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	c := &model.Client{
		Name:    "Acme Corp",
		Email:   "ops@acme.test",
		Company: "Acme",
		Status:  model.ClientActive,
		Tags:    []string{"vip", "west"},
	}
	require.NoError(t, d.CreateClient(ctx, c))
	require.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := d.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "ops@acme.test", got.Email)
	assert.Equal(t, []string{"vip", "west"}, got.Tags)
	assert.Empty(t, got.Phone)

	got.Status = model.ClientInactive
	got.Tags = nil
	require.NoError(t, d.UpdateClient(ctx, got))

	again, err := d.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClientInactive, again.Status)
	assert.Equal(t, []string{}, again.Tags)
	assert.WithinDuration(t, c.CreatedAt, again.CreatedAt, time.Microsecond)

	require.NoError(t, d.DeleteClient(ctx, c.ID))
	_, err = d.GetClient(ctx, c.ID)
	assert.True(t, derrors.HasCode(err, derrors.CodeClientNotFound))
}

func TestCreateClient_Invalid(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	err := d.CreateClient(context.Background(), &model.Client{Email: "not an email", Status: model.ClientActive})
	require.Error(t, err)

	de := derrors.AsDossierError(err)
	require.NotNil(t, de)
	assert.Equal(t, derrors.CodeValidationFailed, de.Code)
	assert.Contains(t, de.Fields, "name")
	assert.Contains(t, de.Fields, "email")
}

func TestUpdateClient_NotFound(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	err := d.UpdateClient(context.Background(), &model.Client{ID: "missing", Name: "x", Status: model.ClientActive})
	assert.True(t, derrors.HasCode(err, derrors.CodeClientNotFound))
}

func TestListClients(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	seedClient(t, d, "Charlie")
	seedClient(t, d, "alpha")
	b := &model.Client{Name: "Bravo", Email: "team@bravo.test", Status: model.ClientProspect}
	require.NoError(t, d.CreateClient(ctx, b))

	tests := []struct {
		name   string
		filter model.ClientFilter
		want   []string
	}{
		{"all ordered by name", model.ClientFilter{}, []string{"Bravo", "Charlie", "alpha"}},
		{"status", model.ClientFilter{Status: model.ClientProspect}, []string{"Bravo"}},
		{"search is case-insensitive", model.ClientFilter{Search: "ALPH"}, []string{"alpha"}},
		{"search matches email", model.ClientFilter{Search: "bravo.test"}, []string{"Bravo"}},
		{"limit", model.ClientFilter{Limit: 2}, []string{"Bravo", "Charlie"}},
		{"offset without limit", model.ClientFilter{Offset: 2}, []string{"alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ListClients(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestListClients_SearchWildcardsAreLiteral(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	seedClient(t, d, "Acme")
	seedClient(t, d, "100% Supply")
	seedClient(t, d, "a_m Holdings")
	seedClient(t, d, `C:\Drive`)

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{"100% Supply"}},
		{"a_m", []string{"a_m Holdings"}},
		{"_", []string{"a_m Holdings"}},
		{`\`, []string{`C:\Drive`}},
		{"acm", []string{"Acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got, err := d.ListClients(ctx, model.ClientFilter{Search: tt.search})
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDeleteClient_WithProjects(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	ctx := context.Background()

	c := seedClient(t, d, "Acme")
	require.NoError(t, d.CreateProject(ctx, &model.Project{ClientID: c.ID, Name: "Site", Status: model.ProjectActive}))

	err := d.DeleteClient(ctx, c.ID)
	assert.True(t, derrors.HasCode(err, derrors.CodeConflict))

	_, err = d.GetClient(ctx, c.ID)
	assert.NoError(t, err)
}

func TestDeleteClient_NotFound(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	err := d.DeleteClient(context.Background(), "missing")
	assert.True(t, derrors.HasCode(err, derrors.CodeClientNotFound))
}
