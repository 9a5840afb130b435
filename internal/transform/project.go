package transform

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/model"
	"github.com/randalmurphal/dossier/internal/util"
)

// ProjectRow mirrors the projects table; money is stored in cents.
type ProjectRow struct {
	ID          string
	ClientID    string
	Name        string
	Description sql.NullString
	Status      string
	BudgetCents sql.NullInt64
	StartDate   sql.NullString
	EndDate     sql.NullString
	Tags        string
	CreatedAt   string
	UpdatedAt   string
}

// ProjectForm is a project as submitted by a form.
type ProjectForm struct {
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Budget      string `json:"budget"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Tags        string `json:"tags"`
}

// ProjectFromRow converts a stored row.
func ProjectFromRow(r ProjectRow) (*model.Project, error) {
	p := &model.Project{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Name:        r.Name,
		Description: r.Description.String,
		Status:      model.ProjectStatus(r.Status),
		Tags:        SplitTags(r.Tags),
	}

	var err error
	if p.CreatedAt, err = util.ParseTimestamp(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("project %s created_at: %w", r.ID, err)
	}
	if p.UpdatedAt, err = util.ParseTimestamp(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("project %s updated_at: %w", r.ID, err)
	}
	if r.BudgetCents.Valid {
		b := float64(r.BudgetCents.Int64) / 100
		p.Budget = &b
	}
	if p.StartDate, err = nullDate(r.StartDate); err != nil {
		return nil, fmt.Errorf("project %s start_date: %w", r.ID, err)
	}
	if p.EndDate, err = nullDate(r.EndDate); err != nil {
		return nil, fmt.Errorf("project %s end_date: %w", r.ID, err)
	}
	return p, nil
}

// ProjectToRow converts a project for storage.
func ProjectToRow(p *model.Project) ProjectRow {
	r := ProjectRow{
		ID:          p.ID,
		ClientID:    p.ClientID,
		Name:        p.Name,
		Description: nullString(p.Description),
		Status:      string(p.Status),
		Tags:        joinTags(p.Tags),
		CreatedAt:   util.FormatTimestamp(p.CreatedAt),
		UpdatedAt:   util.FormatTimestamp(p.UpdatedAt),
	}
	if p.Budget != nil {
		r.BudgetCents = sql.NullInt64{Int64: int64(math.Round(*p.Budget * 100)), Valid: true}
	}
	if p.StartDate != nil {
		r.StartDate = nullString(util.FormatDate(*p.StartDate))
	}
	if p.EndDate != nil {
		r.EndDate = nullString(util.FormatDate(*p.EndDate))
	}
	return r
}

// ProjectFromForm parses and validates a submitted form. Status defaults
// to planning. Parse failures and validation failures are reported
// together as field errors.
func ProjectFromForm(f ProjectForm) (*model.Project, error) {
	p := &model.Project{
		ClientID:    strings.TrimSpace(f.ClientID),
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Status:      model.ProjectStatus(strings.ToLower(strings.TrimSpace(f.Status))),
		Tags:        SplitTags(f.Tags),
	}
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}

	fields := map[string]string{}
	if s := strings.TrimSpace(f.Budget); s != "" {
		cents, err := ParseMoney(s)
		if err != nil {
			fields["budget"] = "must be an amount like 12,500.00"
		} else {
			b := float64(cents) / 100
			p.Budget = &b
		}
	}
	if d, err := formDate(f.StartDate); err != nil {
		fields["startDate"] = "must be YYYY-MM-DD"
	} else {
		p.StartDate = d
	}
	if d, err := formDate(f.EndDate); err != nil {
		fields["endDate"] = "must be YYYY-MM-DD"
	} else {
		p.EndDate = d
	}

	if err := p.Validate(); err != nil {
		de := derrors.AsDossierError(err)
		if de == nil {
			return nil, err
		}
		for k, v := range de.Fields {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return nil, derrors.ErrValidation("invalid project", fields)
	}
	return p, nil
}

// ProjectToForm renders a project for editing.
func ProjectToForm(p *model.Project) ProjectForm {
	f := ProjectForm{
		ClientID:    p.ClientID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Tags:        formTags(p.Tags),
	}
	if p.Budget != nil {
		f.Budget = FormatMoney(int64(math.Round(*p.Budget * 100)))
	}
	if p.StartDate != nil {
		f.StartDate = util.FormatDate(*p.StartDate)
	}
	if p.EndDate != nil {
		f.EndDate = util.FormatDate(*p.EndDate)
	}
	return f
}

func nullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := util.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := util.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
