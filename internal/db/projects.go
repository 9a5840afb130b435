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

const projectColumns = `id, client_id, name, description, status, budget_cents, start_date, end_date, tags, created_at, updated_at`

func scanProject(s scanner) (*model.Project, error) {
	var r transform.ProjectRow
	if err := s.Scan(&r.ID, &r.ClientID, &r.Name, &r.Description, &r.Status, &r.BudgetCents,
		&r.StartDate, &r.EndDate, &r.Tags, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return transform.ProjectFromRow(r)
}

func requireClient(q querier, clientID string) error {
	var one int
	err := q.QueryRow(`SELECT 1 FROM clients WHERE id = ?`, clientID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return derrors.ErrValidation("invalid project", map[string]string{
			"clientId": fmt.Sprintf("client %s does not exist", clientID),
		})
	}
	if err != nil {
		return fmt.Errorf("check client %s: %w", clientID, err)
	}
	return nil
}

// CreateProject validates and stores a new project for an existing client.
func (d *DB) CreateProject(ctx context.Context, p *model.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Tags == nil {
		p.Tags = []string{}
	}

	return d.RunInTx(ctx, func(tx *TxOps) error {
		if err := requireClient(tx, p.ClientID); err != nil {
			return err
		}
		r := transform.ProjectToRow(p)
		_, err := tx.Exec(`
			INSERT INTO projects (`+projectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.ClientID, r.Name, r.Description, r.Status, r.BudgetCents,
			r.StartDate, r.EndDate, r.Tags, r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
}

// GetProject returns a project by ID.
func (d *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return getProject(d.with(ctx), id)
}

func getProject(q querier, id string) (*model.Project, error) {
	p, err := scanProject(q.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.ErrProjectNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns projects matching f, newest first.
func (d *DB) ListProjects(ctx context.Context, f model.ProjectFilter) ([]*model.Project, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`, p, p)
	}
	query := `SELECT ` + projectColumns + ` FROM projects` + w.String() + ` ORDER BY created_at DESC, id`
	query += w.page(d.Dialect(), f.Limit, f.Offset)

	rows, err := d.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject replaces an existing project's fields. CreatedAt is kept.
func (d *DB) UpdateProject(ctx context.Context, p *model.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	return d.RunInTx(ctx, func(tx *TxOps) error {
		existing, err := getProject(tx, p.ID)
		if err != nil {
			return err
		}
		if err := requireClient(tx, p.ClientID); err != nil {
			return err
		}
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = time.Now().UTC()

		r := transform.ProjectToRow(p)
		_, err = tx.Exec(`
			UPDATE projects SET client_id = ?, name = ?, description = ?, status = ?,
				budget_cents = ?, start_date = ?, end_date = ?, tags = ?, updated_at = ?
			WHERE id = ?`,
			r.ClientID, r.Name, r.Description, r.Status, r.BudgetCents,
			r.StartDate, r.EndDate, r.Tags, r.UpdatedAt, r.ID,
		)
		if err != nil {
			return fmt.Errorf("update project %s: %w", p.ID, err)
		}
		return nil
	})
}

// DeleteProject removes a project. Workflows that referenced it keep
// their history and lose the project link.
func (d *DB) DeleteProject(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return derrors.ErrProjectNotFound(id)
	}
	return nil
}
