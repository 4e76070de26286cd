package template

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func TestParsePlaceholders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "#define N {n_layers}\n", []string{"n_layers"}},
		{"double braces", "int a[N] = {{layers_size}};", []string{"layers_size"}},
		{"c blocks are not tokens", "enum X {\n  A,\n};\nint f() { return 0; }", nil},
		{"digits after first char", "{layer_0} {0bad}", []string{"layer_0"}},
		{"repeated", "{a}{b}{a}", []string{"a", "b"}},
		{"unterminated", "{input_size", nil},
		{"empty braces", "{}", nil},
		{"trailing brace", "x {", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.name, tt.text).Placeholders()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Placeholders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderPreservesLiteralText(t *testing.T) {
	text := "enum X {\n  A\n};\n{a}-{{b}}-{missing}-{"
	subs := NewSubstitutions().Set("a", "1").Set("b", "2, 3")
	res := Parse("t", text).Render(subs)
	want := "enum X {\n  A\n};\n1-{2, 3}-{missing}-{"
	if res.Text != want {
		t.Errorf("Render = %q, want %q", res.Text, want)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"missing"}) {
		t.Errorf("Unresolved = %v", res.Unresolved)
	}
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	subs := NewSubstitutions().
		Set("samples_x", "{n_samples}").
		Set("n_samples", "5")
	res := Parse("t", "{samples_x} {n_samples}").Render(subs)
	if res.Text != "{n_samples} 5" {
		t.Errorf("value was rescanned: %q", res.Text)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("value content must not count as unresolved: %v", res.Unresolved)
	}
}

func TestRenderIdenticalTextWithoutSubstitutions(t *testing.T) {
	text := "int a[2] = {{x}};\n"
	res := Parse("t", text).Render(nil)
	if res.Text != text {
		t.Errorf("got %q", res.Text)
	}
}

func TestRenderStrict(t *testing.T) {
	tpl := Parse("model.h", "{input_size} {output_size} {n_layers}")
	subs := NewSubstitutions().Set("input_size", "3")
	_, err := tpl.RenderStrict(subs)
	var target *UnresolvedPlaceholderError
	if !errors.As(err, &target) {
		t.Fatalf("expected UnresolvedPlaceholderError, got %v", err)
	}
	if !reflect.DeepEqual(target.Tokens, []string{"output_size", "n_layers"}) {
		t.Errorf("Tokens = %v", target.Tokens)
	}
	if !strings.Contains(err.Error(), "{output_size}") {
		t.Errorf("error should name the token: %v", err)
	}

	subs.Set("output_size", "1").Set("n_layers", "2")
	text, err := tpl.RenderStrict(subs)
	if err != nil || text != "3 1 2" {
		t.Errorf("RenderStrict = %q, %v", text, err)
	}
}

func TestSubstitutionsOrder(t *testing.T) {
	s := NewSubstitutions().Set("n_samples", "1").Set("samples_x", "x").Set("n_samples", "2")
	if !reflect.DeepEqual(s.Tokens(), []string{"n_samples", "samples_x"}) {
		t.Errorf("Tokens = %v", s.Tokens())
	}
	if v, _ := s.Lookup("n_samples"); v != "2" {
		t.Errorf("n_samples = %q", v)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"data.h": {Data: []byte("#define N {n_samples}\n")},
		"data.c": {Data: []byte("float x[] = {{samples_x}};\n")},
	}
	pair, err := Load(fsys, "data.h", "data.c")
	if err != nil {
		t.Fatal(err)
	}
	subs := NewSubstitutions().Set("n_samples", "0").Set("samples_x", "\n")
	h, b, err := pair.Render(subs, true)
	if err != nil {
		t.Fatal(err)
	}
	if h.Text != "#define N 0\n" || b.Text != "float x[] = {\n};\n" {
		t.Errorf("header=%q body=%q", h.Text, b.Text)
	}
}

func TestPairRenderStrictReportsFirstTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"h": {Data: []byte("{a}")},
		"c": {Data: []byte("{b}")},
	}
	pair, err := Load(fsys, "h", "c")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = pair.Render(NewSubstitutions().Set("a", "1"), true)
	var target *UnresolvedPlaceholderError
	if !errors.As(err, &target) || target.Template != "c" {
		t.Fatalf("expected body error, got %v", err)
	}

	_, body, err := pair.Render(NewSubstitutions().Set("a", "1"), false)
	if err != nil {
		t.Fatalf("permissive render failed: %v", err)
	}
	if body.Text != "{b}" || len(body.Unresolved) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestLoadMissing(t *testing.T) {
	fsys := fstest.MapFS{"model.h": {Data: []byte("x")}}
	_, err := Load(fsys, "model.h", "model.c")
	var target *TemplateNotFoundError
	if !errors.As(err, &target) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
	if target.Path != "model.c" {
		t.Errorf("Path = %q", target.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped fs.ErrNotExist, got %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.h"), []byte("{n_layers}"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadDir(dir, "model.h", "model.c")
	var target *TemplateNotFoundError
	if !errors.As(err, &target) {
		t.Fatalf("expected TemplateNotFoundError, got %v", err)
	}
	if target.Path != filepath.ToSlash(filepath.Join(dir, "model.c")) {
		t.Errorf("Path = %q", target.Path)
	}

	if err := os.WriteFile(filepath.Join(dir, "model.c"), []byte("{layers_size}"), 0o644); err != nil {
		t.Fatal(err)
	}
	pair, err := LoadDir(dir, "model.h", "model.c")
	if err != nil {
		t.Fatal(err)
	}
	if pair.Header.Name() != "model.h" {
		t.Errorf("Name = %q", pair.Header.Name())
	}
}

func TestDefaults(t *testing.T) {
	tests := []struct {
		header, body string
		headerTokens []string
		bodyTokens   []string
	}{
		{"model.h", "model.c",
			[]string{"input_size", "output_size", "n_layers", "layers_size"},
			[]string{"layer_weights", "layer_biases", "layers_size", "layers_weights", "layers_biases", "layers_activation"}},
		{"data.h", "data.c",
			[]string{"file_name", "n_samples", "input_size", "output_size"},
			[]string{"file_name", "samples_x", "samples_y"}},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			pair, err := LoadDir("", tt.header, tt.body)
			if err != nil {
				t.Fatal(err)
			}
			if got := pair.Header.Placeholders(); !reflect.DeepEqual(got, tt.headerTokens) {
				t.Errorf("header placeholders = %v", got)
			}
			if got := pair.Body.Placeholders(); !reflect.DeepEqual(got, tt.bodyTokens) {
				t.Errorf("body placeholders = %v", got)
			}
		})
	}
}
