// Package model defines the application objects for clients and projects.
package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	derrors "github.com/randalmurphal/dossier/internal/errors"
)

// ClientStatus is the relationship state of a client.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientProspect ClientStatus = "prospect"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientInactive, ClientProspect:
		return true
	}
	return false
}

// Client is a customer organisation or person.
type Client struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Company   string       `json:"company,omitempty"`
	Address   string       `json:"address,omitempty"`
	Status    ClientStatus `json:"status"`
	Notes     string       `json:"notes,omitempty"`
	Tags      []string     `json:"tags"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Validate checks required fields and formats.
func (c *Client) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(c.Name) == "" {
		fields["name"] = "required"
	}
	if c.Email != "" {
		if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
			fields["email"] = "invalid email address"
		}
	}
	if !c.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", c.Status)
	}
	if len(fields) > 0 {
		return derrors.ErrValidation("invalid client", fields)
	}
	return nil
}

// ProjectStatus is the delivery state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Project is a body of work for a client.
type Project struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"clientId"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	// Budget is in currency units with two decimal places.
	Budget    *float64   `json:"budget,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Validate checks required fields and ranges. Client existence is checked
// by the store.
func (p *Project) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "required"
	}
	if strings.TrimSpace(p.ClientID) == "" {
		fields["clientId"] = "required"
	}
	if !p.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", p.Status)
	}
	if p.Budget != nil && *p.Budget < 0 {
		fields["budget"] = "must not be negative"
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		fields["endDate"] = "must not be before start date"
	}
	if len(fields) > 0 {
		return derrors.ErrValidation("invalid project", fields)
	}
	return nil
}

// ClientFilter narrows client listings.
type ClientFilter struct {
	Status ClientStatus
	// Search matches name, email or company, case-insensitively.
	Search string
	Limit  int
	Offset int
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Status   ProjectStatus
	ClientID string
	// Search matches name or description, case-insensitively.
	Search string
	Limit  int
	Offset int
}
