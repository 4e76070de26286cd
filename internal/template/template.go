// Package template loads C header/body template pairs and fills their
// {placeholder} tokens.
//
// A template is split into literal text and placeholders once, when it is
// parsed. Rendering writes each part out in order, so a substituted value is
// never scanned for placeholders again and a value that happens to contain
// "{n_layers}" is emitted as-is.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

//go:embed defaults/*
var defaultFS embed.FS

// Defaults returns the built-in model.{h,c} and data.{h,c} templates.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateNotFoundError is returned when a template file is missing or unreadable.
type TemplateNotFoundError struct {
	Path string
	Err  error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *TemplateNotFoundError) Unwrap() error { return e.Err }

// UnresolvedPlaceholderError is returned in strict mode when placeholders survive rendering.
type UnresolvedPlaceholderError struct {
	Template string
	Tokens   []string
}

func (e *UnresolvedPlaceholderError) Error() string {
	quoted := make([]string, len(e.Tokens))
	for i, t := range e.Tokens {
		quoted[i] = "{" + t + "}"
	}
	return fmt.Sprintf("template %s: unresolved placeholders %s", e.Template, strings.Join(quoted, ", "))
}

type part struct {
	text  string
	token string
}

// Template is a parsed template text.
type Template struct {
	name  string
	parts []part
}

// Parse splits text into literal runs and {identifier} placeholders.
func Parse(name, text string) *Template {
	t := &Template{name: name}
	lit := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := scanIdent(text, i+1)
		if end == i+1 || end >= len(text) || text[end] != '}' {
			continue
		}
		if lit < i {
			t.parts = append(t.parts, part{text: text[lit:i]})
		}
		t.parts = append(t.parts, part{token: text[i+1 : end]})
		i = end
		lit = end + 1
	}
	if lit < len(text) {
		t.parts = append(t.parts, part{text: text[lit:]})
	}
	return t
}

func scanIdent(s string, start int) int {
	i := start
	for i < len(s) {
		c := s[i]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && i > start) {
			break
		}
		i++
	}
	return i
}

func (t *Template) Name() string { return t.name }

// Placeholders lists the distinct placeholder names in order of first appearance.
func (t *Template) Placeholders() []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range t.parts {
		if p.token != "" && !seen[p.token] {
			seen[p.token] = true
			out = append(out, p.token)
		}
	}
	return out
}

// Result is a rendered template plus the placeholders no substitution matched.
// Unmatched placeholders are left in Text verbatim.
type Result struct {
	Text       string
	Unresolved []string
}

// Render fills the template from subs.
func (t *Template) Render(subs *Substitutions) Result {
	var sb strings.Builder
	var unresolved []string
	seen := map[string]bool{}
	for _, p := range t.parts {
		if p.token == "" {
			sb.WriteString(p.text)
			continue
		}
		if v, ok := subs.Lookup(p.token); ok {
			sb.WriteString(v)
			continue
		}
		sb.WriteString("{" + p.token + "}")
		if !seen[p.token] {
			seen[p.token] = true
			unresolved = append(unresolved, p.token)
		}
	}
	return Result{Text: sb.String(), Unresolved: unresolved}
}

// RenderStrict is Render that fails when any placeholder is left unresolved.
func (t *Template) RenderStrict(subs *Substitutions) (string, error) {
	res := t.Render(subs)
	if len(res.Unresolved) > 0 {
		return "", &UnresolvedPlaceholderError{Template: t.name, Tokens: res.Unresolved}
	}
	return res.Text, nil
}

// Pair is a header template and its body template.
type Pair struct {
	Header *Template
	Body   *Template
}

// Load reads the header and body templates from fsys.
func Load(fsys fs.FS, header, body string) (*Pair, error) {
	h, err := loadOne(fsys, header)
	if err != nil {
		return nil, err
	}
	b, err := loadOne(fsys, body)
	if err != nil {
		return nil, err
	}
	return &Pair{Header: h, Body: b}, nil
}

// LoadDir reads the pair from a directory on disk. An empty dir selects Defaults.
func LoadDir(dir, header, body string) (*Pair, error) {
	if dir == "" {
		return Load(Defaults(), header, body)
	}
	p, err := Load(os.DirFS(dir), header, body)
	var nf *TemplateNotFoundError
	if errors.As(err, &nf) {
		nf.Path = path.Join(dir, nf.Path)
	}
	return p, err
}

func loadOne(fsys fs.FS, name string) (*Template, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &TemplateNotFoundError{Path: name, Err: err}
	}
	return Parse(name, string(raw)), nil
}

// Render fills both templates from the same substitutions.
func (p *Pair) Render(subs *Substitutions, strict bool) (header, body Result, err error) {
	header = p.Header.Render(subs)
	body = p.Body.Render(subs)
	if strict {
		if len(header.Unresolved) > 0 {
			return header, body, &UnresolvedPlaceholderError{Template: p.Header.name, Tokens: header.Unresolved}
		}
		if len(body.Unresolved) > 0 {
			return header, body, &UnresolvedPlaceholderError{Template: p.Body.name, Tokens: body.Unresolved}
		}
	}
	return header, body, nil
}
