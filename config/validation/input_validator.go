package validation

import (
	"fmt"
	"strings"

	"chatterapi/internal/utils"
)

// MaxFriendlyNameLength bounds connection display names
const MaxFriendlyNameLength = 50

// InputValidator validates single user supplied fields
type InputValidator struct {
}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateFriendlyName checks a connection display name
func (iv *InputValidator) ValidateFriendlyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("friendly name cannot be empty")
	}
	if strings.ContainsAny(name, "<>\"'&/\\") {
		return fmt.Errorf("friendly name contains invalid characters")
	}
	if len(name) > MaxFriendlyNameLength {
		return fmt.Errorf("friendly name is too long (max %d characters)", MaxFriendlyNameLength)
	}
	return nil
}

// ValidateURL checks an optional URL
func (iv *InputValidator) ValidateURL(url string) error {
	if url != "" && !utils.ValidateURL(url) {
		return fmt.Errorf("invalid URL format: %s", url)
	}
	return nil
}

// ValidateModelName checks a model identifier. Slashes are allowed since
// routers such as OpenRouter namespace models by vendor.
func (iv *InputValidator) ValidateModelName(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if strings.ContainsAny(model, "<>\"'&\\") {
		return fmt.Errorf("model name contains invalid characters")
	}
	return nil
}
