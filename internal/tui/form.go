package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"chatterapi/config/models"
	"chatterapi/internal/templates"
	"chatterapi/internal/utils"
)

// FormField represents the index of each form field
const (
	FormFieldTemplate = iota
	FormFieldName
	FormFieldEndpoint
	FormFieldModelEndpoint
	FormFieldKey
	FormFieldModel
	FormFieldCount // Total number of fields
)

// FormData represents the data collected from the form
type FormData struct {
	Template      string
	Name          string
	Endpoint      string
	ModelEndpoint string
	Key           string
	Model         string
}

// Validate validates the form data
func (f *FormData) Validate() error {
	if strings.TrimSpace(f.Template) == "" {
		return errors.New("template cannot be empty")
	}
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if strings.TrimSpace(f.Endpoint) == "" {
		return errors.New("endpoint cannot be empty")
	}
	if !utils.ValidateURL(strings.TrimSpace(f.Endpoint)) {
		return errors.New("invalid endpoint URL")
	}
	if me := strings.TrimSpace(f.ModelEndpoint); me != "" && !utils.ValidateURL(me) {
		return errors.New("invalid model endpoint URL")
	}
	return nil
}

// Apply copies the form values onto c
func (f *FormData) Apply(c models.Connection) models.Connection {
	c.ConfigName = strings.TrimSpace(f.Template)
	c.FriendlyName = strings.TrimSpace(f.Name)
	c.Endpoint = strings.TrimSpace(f.Endpoint)
	c.ModelEndpoint = strings.TrimSpace(f.ModelEndpoint)
	c.Key = strings.TrimSpace(f.Key)
	c.Model = strings.TrimSpace(f.Model)
	return c
}

// FormDataFrom fills a form from a connection
func FormDataFrom(c models.Connection) FormData {
	return FormData{
		Template:      c.ConfigName,
		Name:          c.FriendlyName,
		Endpoint:      c.Endpoint,
		ModelEndpoint: c.ModelEndpoint,
		Key:           c.Key,
		Model:         c.Model,
	}
}

// FormDataFromTemplate seeds a form with the template defaults
func FormDataFromTemplate(t templates.Template) FormData {
	return FormData{
		Template:      t.Name,
		Name:          t.Name,
		Endpoint:      t.DefaultValues.Endpoint,
		ModelEndpoint: t.DefaultValues.ModelEndpoint,
		Key:           t.DefaultValues.Key,
		Model:         t.DefaultValues.Model,
	}
}

// Form styles
var (
	formLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(16)

	formFocusedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true).
				Width(16)

	formErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	formHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 48
	in.Prompt = ""
	return in
}

// FormInputs creates and initializes form input fields
func FormInputs() []textinput.Model {
	inputs := make([]textinput.Model, FormFieldCount)
	inputs[FormFieldTemplate] = newInput("OpenAI", 64)
	inputs[FormFieldName] = newInput("Connection name", 50)
	inputs[FormFieldEndpoint] = newInput("https://api.example.com/v1/chat/completions", 256)
	inputs[FormFieldModelEndpoint] = newInput("https://api.example.com/v1/models", 256)
	inputs[FormFieldKey] = newInput("API key", 256)
	inputs[FormFieldKey].EchoMode = textinput.EchoPassword
	inputs[FormFieldKey].EchoCharacter = '•'
	inputs[FormFieldModel] = newInput("gpt-4o", 128)

	inputs[FormFieldTemplate].Focus()
	return inputs
}

// GetFormData extracts FormData from form inputs
func GetFormData(inputs []textinput.Model) FormData {
	return FormData{
		Template:      inputs[FormFieldTemplate].Value(),
		Name:          inputs[FormFieldName].Value(),
		Endpoint:      inputs[FormFieldEndpoint].Value(),
		ModelEndpoint: inputs[FormFieldModelEndpoint].Value(),
		Key:           inputs[FormFieldKey].Value(),
		Model:         inputs[FormFieldModel].Value(),
	}
}

// SetFormData populates form inputs with existing data
func SetFormData(inputs []textinput.Model, data FormData) {
	inputs[FormFieldTemplate].SetValue(data.Template)
	inputs[FormFieldName].SetValue(data.Name)
	inputs[FormFieldEndpoint].SetValue(data.Endpoint)
	inputs[FormFieldModelEndpoint].SetValue(data.ModelEndpoint)
	inputs[FormFieldKey].SetValue(data.Key)
	inputs[FormFieldModel].SetValue(data.Model)
}

// FormLabels returns the labels for each form field
func FormLabels() []string {
	return []string{
		"Template:",
		"Name:",
		"Endpoint:",
		"Model endpoint:",
		"API Key:",
		"Model:",
	}
}

// FormHints returns the hint text for each form field
func FormHints() []string {
	return []string{
		"Provider template (see 'chatterapi template list')",
		"Display name of the connection",
		"Completion URL requests are posted to",
		"URL listing the available models (optional)",
		"Sent in the template's auth header (optional)",
		"Model to request (optional)",
	}
}

// RenderForm renders the form view with inputs
func RenderForm(inputs []textinput.Model, focusIndex int, title string, errorMsg string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)))
	b.WriteString("\n\n")

	labels := FormLabels()
	hints := FormHints()

	for i, input := range inputs {
		if i == focusIndex {
			b.WriteString(formFocusedStyle.Render(labels[i]))
		} else {
			b.WriteString(formLabelStyle.Render(labels[i]))
		}
		b.WriteString(" ")
		b.WriteString(input.View())
		b.WriteString("\n")

		if i == focusIndex {
			b.WriteString(formLabelStyle.Render(""))
			b.WriteString(" ")
			b.WriteString(formHintStyle.Render(hints[i]))
			b.WriteString("\n")
		}
	}

	if errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(formErrorStyle.Render("✗ " + errorMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Tab/↓: next │ Shift+Tab/↑: previous │ Enter: save │ Esc: cancel"))

	return b.String()
}

// NextFormField moves focus to the next form field
func NextFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	nextFocus := (currentFocus + 1) % len(inputs)
	inputs[nextFocus].Focus()
	return nextFocus
}

// PrevFormField moves focus to the previous form field
func PrevFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	prevFocus := currentFocus - 1
	if prevFocus < 0 {
		prevFocus = len(inputs) - 1
	}
	inputs[prevFocus].Focus()
	return prevFocus
}
