// Package codegen turns a validated model spec and a sample set into C
// declarations by filling header/body template pairs.
package codegen

import (
	"github.com/23skdu/longbow-cgen/internal/template"
)

// Result describes one emission.
type Result struct {
	Files []string
	Bytes int64
	// Unresolved lists placeholders left in each template, keyed by template
	// name. Only populated in permissive mode.
	Unresolved map[string][]string
}

type renderer struct {
	templates *template.Pair
	strict    bool
	atomic    bool
}

func (r renderer) render(name string, header, body *template.Substitutions) ([]File, map[string][]string, error) {
	var h, b template.Result
	if r.strict {
		ht, err := r.templates.Header.RenderStrict(header)
		if err != nil {
			return nil, nil, err
		}
		bt, err := r.templates.Body.RenderStrict(body)
		if err != nil {
			return nil, nil, err
		}
		h, b = template.Result{Text: ht}, template.Result{Text: bt}
	} else {
		h, b = r.templates.Header.Render(header), r.templates.Body.Render(body)
	}

	unresolved := map[string][]string{}
	if len(h.Unresolved) > 0 {
		unresolved[r.templates.Header.Name()] = h.Unresolved
	}
	if len(b.Unresolved) > 0 {
		unresolved[r.templates.Body.Name()] = b.Unresolved
	}
	files := []File{
		{Name: name + ".h", Content: []byte(h.Text)},
		{Name: name + ".c", Content: []byte(b.Text)},
	}
	return files, unresolved, nil
}

func (r renderer) write(dir string, files []File, unresolved map[string][]string) (*Result, error) {
	paths, n, err := WriteFiles(dir, files, r.atomic)
	if err != nil {
		return &Result{Files: paths, Bytes: n}, err
	}
	return &Result{Files: paths, Bytes: n, Unresolved: unresolved}, nil
}
