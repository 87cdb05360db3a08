package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatterapi/internal/templates"
)

func TestCustomIndex(t *testing.T) {
	custom := []templates.Template{{Name: "Alpha"}, {Name: "Beta"}}

	tests := []struct {
		arg     string
		want    int
		wantErr string
	}{
		{"1", 0, ""},
		{"2", 1, ""},
		{"Beta", 1, ""},
		{"3", -1, "does not exist"},
		{"0", -1, "does not exist"},
		{"OpenAI", -1, "built-in templates cannot be removed"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := customIndex(custom, tt.arg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("customIndex(%q) = %d, %v; want %d", tt.arg, got, err, tt.want)
			}
		})
	}
}

func TestToYAML(t *testing.T) {
	out, err := toYAML([]byte(`{"name":"X","defaultValues":{"endpoint":"http://localhost"}}`))
	if err != nil {
		t.Fatalf("toYAML() error: %v", err)
	}
	for _, want := range []string{"name: X", "defaultValues:", "endpoint: http://localhost"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("YAML missing %q:\n%s", want, out)
		}
	}

	if _, err := toYAML([]byte("{")); err == nil {
		t.Error("malformed input should fail")
	}
}

func TestTemplateImportExportRemove(t *testing.T) {
	useConfigDir(t)
	work := t.TempDir()

	src := filepath.Join(work, "local.yaml")
	doc := `
name: Local Llama
defaultValues:
  endpoint: http://localhost:9000/completion
request:
  responseParsePattern: content
  completionType: text
  promptKey: prompt
`
	if err := os.WriteFile(src, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	if err := runCLI(t, "template", "import", src); err != nil {
		t.Fatalf("import error: %v", err)
	}
	if err := runCLI(t, "template", "import", src); err == nil {
		t.Error("importing the same name twice should fail")
	}
	if err := runCLI(t, "template", "list"); err != nil {
		t.Fatalf("list error: %v", err)
	}
	if err := runCLI(t, "template", "show", "Local Llama", "--yaml"); err != nil {
		t.Fatalf("show error: %v", err)
	}

	out := filepath.Join(work, "exported.json")
	if err := runCLI(t, "template", "export", "Local Llama", "-o", out); err != nil {
		t.Fatalf("export error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("exported file: %v", err)
	}
	exported, err := templates.Parse(data)
	if err != nil || exported.DefaultValues.Endpoint != "http://localhost:9000/completion" {
		t.Errorf("exported = %+v, %v", exported, err)
	}

	if err := runCLI(t, "connection", "add", "Local Llama", "--name", "llama"); err != nil {
		t.Fatalf("add with imported template error: %v", err)
	}

	if err := runCLI(t, "template", "remove", "OpenAI"); err == nil {
		t.Error("built-in templates cannot be removed")
	}
	if err := runCLI(t, "template", "remove", "1"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, ok := openTestEnv(t).registry.Get("Local Llama"); ok {
		t.Error("template still registered after remove")
	}
}
