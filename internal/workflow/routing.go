package workflow

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// UnassignedApprover holds queue items no rule or stage default could place.
const UnassignedApprover = "unassigned"

// RoutingRule assigns Approver to documents whose type matches the
// DocumentType glob. Stage 0 matches every stage.
type RoutingRule struct {
	DocumentType string
	Stage        Stage
	Approver     string
}

// Router picks the approver for a workflow's stage.
type Router struct {
	rules          []RoutingRule
	stageApprovers map[Stage]string
}

// NewRouter validates the rules and returns a router.
func NewRouter(rules []RoutingRule, stageApprovers map[Stage]string) (*Router, error) {
	for i, r := range rules {
		if !doublestar.ValidatePattern(r.DocumentType) {
			return nil, fmt.Errorf("routing rule %d: invalid document_type pattern %q", i, r.DocumentType)
		}
		if r.Stage != 0 && !r.Stage.Valid() {
			return nil, fmt.Errorf("routing rule %d: stage %d out of range", i, r.Stage)
		}
		if r.Approver == "" {
			return nil, fmt.Errorf("routing rule %d: approver is required", i)
		}
	}
	return &Router{rules: rules, stageApprovers: stageApprovers}, nil
}

// Assign returns the approver for documentType at stage. The first matching
// rule wins, then the stage default, then UnassignedApprover.
func (r *Router) Assign(documentType string, stage Stage) string {
	for _, rule := range r.rules {
		if rule.Stage != 0 && rule.Stage != stage {
			continue
		}
		if ok, _ := doublestar.Match(rule.DocumentType, documentType); ok {
			return rule.Approver
		}
	}
	if a := r.stageApprovers[stage]; a != "" {
		return a
	}
	return UnassignedApprover
}
