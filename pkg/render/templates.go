package render

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"text/template"
)

// Templates produces the text of each fragment kind and of the enclosing
// document.
type Templates interface {
	Attribute(AttributeFragment) (string, error)
	Command(CommandFragment) (string, error)
	Event(EventFragment) (string, error)
	Document(DocumentData) (string, error)
}

//go:embed templates/*.tmpl
var templateFS embed.FS

// TextTemplates renders OpenAPI YAML with text/template. The template set
// defines "attribute", "command", "event" and "document".
type TextTemplates struct {
	t *template.Template
}

var _ Templates = (*TextTemplates)(nil)

var defaultTemplates = template.Must(
	template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl"),
)

// DefaultTemplates returns the built-in OpenAPI templates.
func DefaultTemplates() *TextTemplates {
	return &TextTemplates{t: defaultTemplates}
}

// ParseTemplates loads a template set from fsys. Templates not defined by
// the files fall back to the built-in ones.
func ParseTemplates(fsys fs.FS, patterns ...string) (*TextTemplates, error) {
	t, err := defaultTemplates.Clone()
	if err != nil {
		return nil, err
	}
	if _, err := t.ParseFS(fsys, patterns...); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &TextTemplates{t: t}, nil
}

// Attribute renders an attribute fragment.
func (t *TextTemplates) Attribute(f AttributeFragment) (string, error) {
	return t.execute("attribute", f)
}

// Command renders a command fragment.
func (t *TextTemplates) Command(f CommandFragment) (string, error) {
	return t.execute("command", f)
}

// Event renders an event fragment.
func (t *TextTemplates) Event(f EventFragment) (string, error) {
	return t.execute("event", f)
}

// Document renders the enclosing document.
func (t *TextTemplates) Document(d DocumentData) (string, error) {
	return t.execute("document", d)
}

func (t *TextTemplates) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

var templateFuncs = template.FuncMap{
	"quote": strconv.Quote,
	"path":  fragmentPath,
	"tag": func(f Fragment) string {
		return strconv.Quote(fmt.Sprintf("%d - %s", f.Endpoint, f.EndpointName))
	},
	"opID": func(verb string, f Fragment, name string) string {
		return fmt.Sprintf("%s_%d_%s_%s", verb, f.Endpoint, f.Cluster, name)
	},
	"schema": schemaLines,
}

// fragmentPath returns the REST path of an element of a cluster instance.
func fragmentPath(f Fragment, kind, name string) string {
	return fmt.Sprintf("/api/v1/%d/%d/%s/%s/%s", f.Node, f.Endpoint, f.Cluster, kind, name)
}

// schemaLines renders a value schema indented by indent spaces.
func schemaLines(typ string, nullable bool, indent int) string {
	pad := strings.Repeat(" ", indent)
	var lines []string
	if typ != "" {
		lines = append(lines, pad+"type: "+typ)
	}
	if typ == "array" {
		lines = append(lines, pad+"items: {}")
	}
	if nullable {
		lines = append(lines, pad+"nullable: true")
	}
	if len(lines) == 0 {
		return pad + "{}"
	}
	return strings.Join(lines, "\n")
}
