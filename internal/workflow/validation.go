package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// ValidationRule checks one gjson path in the document metadata.
type ValidationRule struct {
	Path     string
	Required bool
	Equals   string
	OneOf    []string
	Message  string
}

// Violation is a failed rule.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validator runs stage-1 automated validation.
type Validator struct {
	rules []ValidationRule
}

// NewValidator returns a validator for rules.
func NewValidator(rules []ValidationRule) (*Validator, error) {
	for i, r := range rules {
		if r.Path == "" {
			return nil, fmt.Errorf("validation rule %d: path is required", i)
		}
	}
	return &Validator{rules: rules}, nil
}

// Validate returns every rule metadata fails. Absent optional paths pass.
func (v *Validator) Validate(metadata []byte) []Violation {
	var out []Violation
	for _, r := range v.rules {
		res := gjson.GetBytes(metadata, r.Path)
		if !res.Exists() {
			if r.Required {
				out = append(out, violation(r, fmt.Sprintf("%s is required", r.Path)))
			}
			continue
		}
		val := res.String()
		if r.Equals != "" && val != r.Equals {
			out = append(out, violation(r, fmt.Sprintf("%s must equal %q", r.Path, r.Equals)))
			continue
		}
		if len(r.OneOf) > 0 && !slices.Contains(r.OneOf, val) {
			out = append(out, violation(r, fmt.Sprintf("%s must be one of %s", r.Path, strings.Join(r.OneOf, ", "))))
		}
	}
	return out
}

func violation(r ValidationRule, fallback string) Violation {
	msg := r.Message
	if msg == "" {
		msg = fallback
	}
	return Violation{Path: r.Path, Message: msg}
}

// summarize joins violation messages into a rejection reason.
func summarize(vs []Violation) string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Message
	}
	return "automated validation failed: " + strings.Join(msgs, "; ")
}
