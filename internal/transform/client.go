package transform

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/util"
)

// ClientRow mirrors the clients table; fields map to snake_case columns.
type ClientRow struct {
	ID        string
	Name      string
	Email     sql.NullString
	Phone     sql.NullString
	Company   sql.NullString
	Address   sql.NullString
	Status    string
	Notes     sql.NullString
	Tags      string
	CreatedAt string
	UpdatedAt string
}

// ClientForm is a client as submitted by a form: every field a string.
type ClientForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Address string `json:"address"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Tags    string `json:"tags"`
}

// ClientFromRow converts a stored row.
func ClientFromRow(r ClientRow) (*model.Client, error) {
	created, err := util.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("client %s created_at: %w", r.ID, err)
	}
	updated, err := util.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("client %s updated_at: %w", r.ID, err)
	}
	return &model.Client{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email.String,
		Phone:     r.Phone.String,
		Company:   r.Company.String,
		Address:   r.Address.String,
		Status:    model.ClientStatus(r.Status),
		Notes:     r.Notes.String,
		Tags:      SplitTags(r.Tags),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// ClientToRow converts a client for storage.
func ClientToRow(c *model.Client) ClientRow {
	return ClientRow{
		ID:        c.ID,
		Name:      c.Name,
		Email:     nullString(c.Email),
		Phone:     nullString(c.Phone),
		Company:   nullString(c.Company),
		Address:   nullString(c.Address),
		Status:    string(c.Status),
		Notes:     nullString(c.Notes),
		Tags:      joinTags(c.Tags),
		CreatedAt: util.FormatTimestamp(c.CreatedAt),
		UpdatedAt: util.FormatTimestamp(c.UpdatedAt),
	}
}

// ClientFromForm trims and normalizes a submitted form and validates the
// result. Status defaults to active. The returned client has no ID or
// timestamps.
func ClientFromForm(f ClientForm) (*model.Client, error) {
	c := &model.Client{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.ToLower(strings.TrimSpace(f.Email)),
		Phone:   strings.TrimSpace(f.Phone),
		Company: strings.TrimSpace(f.Company),
		Address: strings.TrimSpace(f.Address),
		Status:  model.ClientStatus(strings.ToLower(strings.TrimSpace(f.Status))),
		Notes:   strings.TrimSpace(f.Notes),
		Tags:    SplitTags(f.Tags),
	}
	if c.Status == "" {
		c.Status = model.ClientActive
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ClientToForm renders a client for editing.
func ClientToForm(c *model.Client) ClientForm {
	return ClientForm{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.Company,
		Address: c.Address,
		Status:  string(c.Status),
		Notes:   c.Notes,
		Tags:    formTags(c.Tags),
	}
}
