// Package registry maps model identifiers to display labels.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"llm-trade-verifier/internal/errors"
	"llm-trade-verifier/internal/models"
)

// Registry is an immutable snapshot of known models keyed by code.
// The zero value is an empty registry.
type Registry struct {
	byCode map[string]models.AIModel
	order  []string
}

// FromModels builds a registry. Later entries with a duplicate code replace earlier ones.
func FromModels(list []models.AIModel) Registry {
	r := Registry{byCode: make(map[string]models.AIModel, len(list))}
	for _, m := range list {
		if _, seen := r.byCode[m.Code]; !seen {
			r.order = append(r.order, m.Code)
		}
		r.byCode[m.Code] = m
	}
	return r
}

// DisplayName returns the label for code, falling back to the code itself.
func (r Registry) DisplayName(code string) string {
	if m, ok := r.byCode[code]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return code
}

// Lookup returns the entry for code.
func (r Registry) Lookup(code string) (models.AIModel, bool) {
	m, ok := r.byCode[code]
	return m, ok
}

// Models returns the entries in insertion order.
func (r Registry) Models() []models.AIModel {
	out := make([]models.AIModel, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}

// Len returns the number of entries.
func (r Registry) Len() int {
	return len(r.byCode)
}

// DefaultModels lists the models whose response files the importer understands.
func DefaultModels() []models.AIModel {
	return []models.AIModel{
		{Code: "claude-3-sonnet", DisplayName: "Claude 3 Sonnet", Provider: "Anthropic", Active: true},
		{Code: "chatgpt-4", DisplayName: "ChatGPT-4", Provider: "OpenAI", Active: true},
		{Code: "gemini-pro", DisplayName: "Gemini Pro", Provider: "Google", Active: true},
	}
}

type seedFile struct {
	Models []seedModel `yaml:"models"`
}

type seedModel struct {
	Code        string `yaml:"code"`
	DisplayName string `yaml:"display_name"`
	Provider    string `yaml:"provider"`
	Active      *bool  `yaml:"active"`
}

// LoadFile reads a YAML seed file of the form
//
//	models:
//	  - code: gpt-4
//	    display_name: GPT-4
//	    provider: OpenAI
//	    active: true
//
// Entries without an explicit active flag are active.
func LoadFile(path string) ([]models.AIModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes seed file content.
func Parse(b []byte) ([]models.AIModel, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding model seed file: %w", err)
	}

	out := make([]models.AIModel, 0, len(f.Models))
	for i, m := range f.Models {
		code := strings.TrimSpace(m.Code)
		if code == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("models[%d].code", i), m.Code, "code is required")
		}
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		out = append(out, models.AIModel{
			Code:        code,
			DisplayName: strings.TrimSpace(m.DisplayName),
			Provider:    strings.TrimSpace(m.Provider),
			Active:      active,
		})
	}
	return out, nil
}
