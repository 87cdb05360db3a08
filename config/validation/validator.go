package validation

import (
	"fmt"

	"chatterapi/config/models"
)

// Validator validates connections before they are stored
type Validator struct {
	// TemplateExists, when set, rejects connections naming an unknown template
	TemplateExists func(name string) bool

	input *InputValidator
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{input: NewInputValidator()}
}

// ValidateConnection validates a connection
func (v *Validator) ValidateConnection(c models.Connection) error {
	if c.ConfigName == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if v.TemplateExists != nil && !v.TemplateExists(c.ConfigName) {
		return fmt.Errorf("unknown template: %s", c.ConfigName)
	}
	if err := v.input.ValidateFriendlyName(c.FriendlyName); err != nil {
		return err
	}
	if err := v.input.ValidateURL(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if err := v.input.ValidateURL(c.ModelEndpoint); err != nil {
		return fmt.Errorf("model endpoint: %w", err)
	}
	if c.Model != "" {
		if err := v.input.ValidateModelName(c.Model); err != nil {
			return err
		}
	}
	return nil
}
