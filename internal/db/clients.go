package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/transform"
)

const clientColumns = `id, name, email, phone, company, address, status, notes, tags, created_at, updated_at`

func scanClient(s scanner) (*model.Client, error) {
	var r transform.ClientRow
	if err := s.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Company, &r.Address,
		&r.Status, &r.Notes, &r.Tags, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return transform.ClientFromRow(r)
}

// CreateClient validates and stores a new client, assigning its ID and
// timestamps.
func (d *DB) CreateClient(ctx context.Context, c *model.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Tags == nil {
		c.Tags = []string{}
	}

	r := transform.ClientToRow(c)
	_, err := d.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Email, r.Phone, r.Company, r.Address, r.Status, r.Notes, r.Tags, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetClient returns a client by ID.
func (d *DB) GetClient(ctx context.Context, id string) (*model.Client, error) {
	return getClient(d.with(ctx), id)
}

func getClient(q querier, id string) (*model.Client, error) {
	c, err := scanClient(q.QueryRow(`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.ErrClientNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}

// ListClients returns clients matching f ordered by name.
func (d *DB) ListClients(ctx context.Context, f model.ClientFilter) ([]*model.Client, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(email, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(company, '')) LIKE ? ESCAPE '\')`, p, p, p)
	}
	query := `SELECT ` + clientColumns + ` FROM clients` + w.String() + ` ORDER BY name, id`
	query += w.page(d.Dialect(), f.Limit, f.Offset)

	rows, err := d.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateClient replaces an existing client's fields. CreatedAt is kept.
func (d *DB) UpdateClient(ctx context.Context, c *model.Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := d.GetClient(ctx, c.ID)
	if err != nil {
		return err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	if c.Tags == nil {
		c.Tags = []string{}
	}

	r := transform.ClientToRow(c)
	_, err = d.ExecContext(ctx, `
		UPDATE clients SET name = ?, email = ?, phone = ?, company = ?, address = ?,
			status = ?, notes = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Email, r.Phone, r.Company, r.Address, r.Status, r.Notes, r.Tags, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update client %s: %w", c.ID, err)
	}
	return nil
}

// DeleteClient removes a client. A client that still has projects cannot
// be deleted.
func (d *DB) DeleteClient(ctx context.Context, id string) error {
	return d.RunInTx(ctx, func(tx *TxOps) error {
		if _, err := getClient(tx, id); err != nil {
			return err
		}

		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM projects WHERE client_id = ?`, id).Scan(&n); err != nil {
			return fmt.Errorf("count client projects: %w", err)
		}
		if n > 0 {
			return derrors.ErrConflict(
				fmt.Sprintf("client %s has %d project(s)", id, n),
				"delete or reassign the projects first",
			)
		}

		if _, err := tx.Exec(`DELETE FROM clients WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete client %s: %w", id, err)
		}
		return nil
	})
}
