package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chatterapi/config/storage"

	"gopkg.in/yaml.v3"
)

var (
	// ErrTemplateNotFound is returned when no template carries a name
	ErrTemplateNotFound = errors.New("template not found")
	// ErrDuplicateName is returned when adding a template whose name is taken
	ErrDuplicateName = errors.New("template name already exists")
)

// Registry holds the built-in templates and the user imported ones
type Registry struct {
	path    string
	builtin []Template
	custom  []Template
	mu      sync.RWMutex
}

// NewRegistry loads custom templates from path. A missing file means no
// custom templates.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, builtin: Builtin()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.custom); err != nil {
		return nil, fmt.Errorf("failed to parse templates file: %w", err)
	}
	return r, nil
}

// Templates returns built-in templates followed by custom ones
func (r *Registry) Templates() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.builtin)+len(r.custom))
	out = append(out, r.builtin...)
	out = append(out, r.custom...)
	return out
}

// Custom returns the user imported templates
func (r *Registry) Custom() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, len(r.custom))
	copy(out, r.custom)
	return out
}

// Get looks a template up by name
func (r *Registry) Get(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(name)
}

// find searches built-in then custom templates. The caller holds r.mu.
func (r *Registry) find(name string) (Template, bool) {
	for _, list := range [][]Template{r.builtin, r.custom} {
		for _, t := range list {
			if t.Name == name {
				return t, true
			}
		}
	}
	return Template{}, false
}

// IsBuiltin reports whether name belongs to a bundled template
func (r *Registry) IsBuiltin(name string) bool {
	for _, t := range r.builtin {
		if t.Name == name {
			return true
		}
	}
	return false
}

// AddTemplate appends a custom template and persists the list
func (r *Registry) AddTemplate(t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.find(t.Name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, t.Name)
	}

	custom := append(append([]Template{}, r.custom...), t)
	if err := r.save(custom); err != nil {
		return err
	}
	r.custom = custom
	return nil
}

// RemoveTemplate removes the custom template at index. Connections that
// reference it are left alone and fail at build time.
func (r *Registry) RemoveTemplate(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.custom) {
		return fmt.Errorf("custom template index %d out of range", index)
	}
	custom := append(append([]Template{}, r.custom[:index]...), r.custom[index+1:]...)
	if err := r.save(custom); err != nil {
		return err
	}
	r.custom = custom
	return nil
}

func (r *Registry) save(custom []Template) error {
	data, err := json.MarshalIndent(custom, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize templates: %w", err)
	}
	return storage.AtomicFileUpdate(r.path, string(data), false)
}

// Parse decodes a JSON template document. Only JSON syntax is checked; a
// template missing fields fails later when a request is built.
func Parse(data []byte) (Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("failed to parse template: %w", err)
	}
	return t, nil
}

// ParseYAML decodes a YAML template document using the JSON field names
func ParseYAML(data []byte) (Template, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Template{}, fmt.Errorf("failed to parse template: %w", err)
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return Template{}, fmt.Errorf("failed to convert template: %w", err)
	}
	return Parse(converted)
}

// Import parses data and adds the result as a custom template
func (r *Registry) Import(data []byte) (Template, error) {
	t, err := Parse(data)
	if err != nil {
		return Template{}, err
	}
	if err := r.AddTemplate(t); err != nil {
		return Template{}, err
	}
	return t, nil
}

// ImportFile imports a template file; .yaml and .yml are read as YAML
func (r *Registry) ImportFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("failed to read template file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		t, err := ParseYAML(data)
		if err != nil {
			return Template{}, err
		}
		if err := r.AddTemplate(t); err != nil {
			return Template{}, err
		}
		return t, nil
	default:
		return r.Import(data)
	}
}

// Export encodes a template as indented JSON
func Export(t Template) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export template: %w", err)
	}
	return data, nil
}
