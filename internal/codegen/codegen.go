// Package codegen renders the langs package registry from the manifest and
// the fetched grammar queries. Output is deterministic: the same manifest
// and query files always produce byte-identical Go source.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/glosslang/gloss/internal/manifest"
	"github.com/glosslang/gloss/internal/native"
)

// GenerateError reports a registry that cannot be generated, such as two
// languages claiming the same name or alias.
type GenerateError struct {
	Key    string
	First  string
	Second string
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate: key %q claimed by both %s and %s", e.Key, e.First, e.Second)
}

// Generator writes the generated registry source into the langs package.
type Generator struct {
	Root string // project root containing languages/
	Dir  string // output directory, Root/langs when empty
}

type langData struct {
	Name       string
	GoName     string
	CSymbol    string
	LibScanner string // -l name of the C++ scanner archive, empty without one
	Highlights string // quoted Go string literals, ready to splice
	Injections string
	Locals     string
}

type keyData struct {
	Key    string
	GoName string
}

type fileData struct {
	Langs    []langData
	Keys     []keyData
	NeedsCPP bool
}

// Generate writes langs.go and langs_test.go for every manifest entry.
// Registry keys are claimed in declaration order, names before aliases, and
// any key claimed twice aborts generation.
func (g *Generator) Generate(m *manifest.Manifest) error {
	dir := g.Dir
	if dir == "" {
		dir = filepath.Join(g.Root, "langs")
	}

	data, err := g.collect(m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := render(filepath.Join(dir, "langs.go"), langsTmpl, data); err != nil {
		return err
	}
	return render(filepath.Join(dir, "langs_test.go"), langsTestTmpl, data)
}

func (g *Generator) collect(m *manifest.Manifest) (*fileData, error) {
	data := &fileData{}
	owner := make(map[string]string)

	for _, lang := range m.Languages {
		queriesDir := filepath.Join(g.Root, "languages", lang.Name, "queries")
		highlights, err := readQuery(queriesDir, "highlights.scm")
		if err != nil {
			return nil, err
		}
		injections, err := readQuery(queriesDir, "injections.scm")
		if err != nil {
			return nil, err
		}
		locals, err := readQuery(queriesDir, "locals.scm")
		if err != nil {
			return nil, err
		}

		ld := langData{
			Name:       lang.Name,
			GoName:     goName(lang.Name),
			CSymbol:    "tree_sitter_" + lang.Ident(),
			Highlights: strconv.Quote(highlights),
			Injections: strconv.Quote(injections),
			Locals:     strconv.Quote(locals),
		}

		srcDir := filepath.Join(g.Root, "languages", lang.Name, "src")
		if native.DetectScanner(srcDir) == native.ScannerCPP {
			ld.LibScanner = lang.Name + "-scanner"
			data.NeedsCPP = true
		}
		data.Langs = append(data.Langs, ld)

		for _, key := range lang.Keys() {
			if first, ok := owner[key]; ok {
				return nil, &GenerateError{Key: key, First: first, Second: lang.Name}
			}
			owner[key] = lang.Name
			data.Keys = append(data.Keys, keyData{Key: key, GoName: ld.GoName})
		}
	}
	return data, nil
}

// readQuery returns one query file's contents, or "" when the grammar does
// not ship it.
func readQuery(dir, file string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read query %s: %w", filepath.Join(dir, file), err)
	}
	return string(data), nil
}

// goName converts a manifest name to an exported Go identifier:
// "ocaml-interface" becomes "OcamlInterface". Manifest names are restricted
// to lowercase ASCII, digits, '-' and '_'.
func goName(name string) string {
	out := make([]byte, 0, len(name))
	upper := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '-' || c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 32
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}

func render(path string, tmpl *template.Template, data *fileData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, src, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var langsTmpl = template.Must(template.New("langs.go").Parse(`// Code generated by gloss. DO NOT EDIT.

package langs

/*
{{- range .Langs}}
#cgo LDFLAGS: -L${SRCDIR}/../languages/{{.Name}} -l{{.Name}}-parser{{if .LibScanner}} -l{{.LibScanner}}{{end}}
{{- end}}
{{- if .NeedsCPP}}
#cgo linux LDFLAGS: -lstdc++
#cgo darwin LDFLAGS: -lc++
{{- end}}

typedef struct TSLanguage TSLanguage;
{{- range .Langs}}
const TSLanguage *{{.CSymbol}}(void);
{{- end}}
*/
import "C"
{{if .Langs}}
import (
	"unsafe"

	highlight "github.com/noClaps/go-tree-sitter-highlight"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)
{{- end}}
{{range .Langs}}
// {{.GoName}}Language returns the native {{.Name}} grammar.
func {{.GoName}}Language() *tree_sitter.Language {
	return tree_sitter.NewLanguage(unsafe.Pointer(C.{{.CSymbol}}()))
}

const (
	{{.GoName}}HighlightsQuery = {{.Highlights}}
	{{.GoName}}InjectionsQuery = {{.Injections}}
	{{.GoName}}LocalsQuery     = {{.Locals}}
)

// {{.GoName}}Config builds the highlight configuration for {{.Name}}.
// It panics when the grammar and its queries disagree.
func {{.GoName}}Config() *highlight.Configuration {
	cfg, err := highlight.NewConfiguration({{.GoName}}Language(), {{printf "%q" .Name}}, {{.GoName}}HighlightsQuery, {{.GoName}}InjectionsQuery, {{.GoName}}LocalsQuery)
	if err != nil {
		panic("langs: {{.Name}}: " + err.Error())
	}
	return cfg
}
{{end}}
// Registry maps every language name and alias to its configuration factory.
var Registry = map[string]Factory{
{{- range .Keys}}
	{{printf "%q" .Key}}: {{.GoName}}Config,
{{- end}}
}

// Names lists the registered languages in declaration order, aliases
// excluded.
var Names = []string{
{{- range .Langs}}
	{{printf "%q" .Name}},
{{- end}}
}

// Get returns the configuration factory for a language name or alias.
func Get(name string) (Factory, bool) {
	f, ok := Registry[name]
	return f, ok
}
`))

var langsTestTmpl = template.Must(template.New("langs_test.go").Parse(`// Code generated by gloss. DO NOT EDIT.

package langs
{{if .Langs}}
import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// checkGrammar verifies a native grammar loads into a parser and its
// highlight configuration builds.
func checkGrammar(t *testing.T, lang *tree_sitter.Language, factory Factory) {
	t.Helper()
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if factory() == nil {
		t.Fatal("nil configuration")
	}
}
{{- end}}
{{range .Langs}}
func TestGrammar{{.GoName}}(t *testing.T) { checkGrammar(t, {{.GoName}}Language(), {{.GoName}}Config) }
{{end -}}
`))
