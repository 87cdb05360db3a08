package config

import (
	"fmt"
	"strings"
)

// ModelValidator checks model selections before they reach a connection
type ModelValidator struct{}

// NewModelValidator creates a new ModelValidator instance
func NewModelValidator() *ModelValidator {
	return &ModelValidator{}
}

// ValidateModelInList returns an error unless model (trimmed) appears in models
func (v *ModelValidator) ValidateModelInList(model string, models []string) error {
	normalized := strings.TrimSpace(model)
	if normalized == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for _, m := range models {
		if strings.TrimSpace(m) == normalized {
			return nil
		}
	}
	return fmt.Errorf("model '%s' is not in the selected models: %v", model, models)
}

// NormalizeModels trims, drops empty names and deduplicates, keeping order.
// The result is never nil.
func (v *ModelValidator) NormalizeModels(models []string) []string {
	seen := make(map[string]bool, len(models))
	result := make([]string, 0, len(models))
	for _, m := range models {
		trimmed := strings.TrimSpace(m)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	return result
}

// Selection resolves the model and multi-model list to store on a connection.
// With a list, the model must be one of its entries; an empty model falls back
// to the first entry.
func (v *ModelValidator) Selection(model string, models []string) (string, []string, error) {
	list := v.NormalizeModels(models)
	model = strings.TrimSpace(model)
	if len(list) == 0 {
		return model, nil, nil
	}
	if model == "" {
		return list[0], list, nil
	}
	if err := v.ValidateModelInList(model, list); err != nil {
		return "", nil, err
	}
	return model, list, nil
}
