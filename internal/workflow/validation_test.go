package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorValidate(t *testing.T) {
	v, err := NewValidator([]ValidationRule{
		{Path: "signed", Required: true, Equals: "true", Message: "document must be signed"},
		{Path: "jurisdiction", OneOf: []string{"US", "EU"}},
		{Path: "pages", Required: true},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		metadata string
		want     []string
	}{
		{"all pass", `{"signed":true,"jurisdiction":"EU","pages":3}`, nil},
		{"optional absent", `{"signed":true,"pages":3}`, nil},
		{"missing required", `{"signed":true}`, []string{"pages is required"}},
		{"equals fails with custom message", `{"signed":false,"pages":1}`, []string{"document must be signed"}},
		{"one_of fails", `{"signed":true,"pages":1,"jurisdiction":"APAC"}`, []string{"jurisdiction must be one of US, EU"}},
		{"empty metadata", ``, []string{"document must be signed", "pages is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, vi := range v.Validate([]byte(tt.metadata)) {
				got = append(got, vi.Message)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatorRequiresPath(t *testing.T) {
	_, err := NewValidator([]ValidationRule{{Required: true}})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	got := summarize([]Violation{{Message: "a"}, {Message: "b"}})
	assert.Equal(t, "automated validation failed: a; b", got)
}
