package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
)

// polyImportPath is the import path of the dispatch package referenced by
// generated code.
const polyImportPath = "github.com/funvibe/morph/pkg/poly"

// Generate produces the Go source of the morph glue file for cfg: one tag
// marker type per operation, one poly.MustInterface value per interface,
// typed Ref/Object facades, and an init() with the Provide registrations.
// The output is gofmt-formatted.
func Generate(cfg *Config) ([]byte, error) {
	data, err := buildFileData(cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering generated file: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		// A formatting failure means the template produced invalid Go;
		// surface the raw output to make the bug findable.
		return nil, fmt.Errorf("generated code does not parse: %w\n%s", err, buf.String())
	}
	return src, nil
}

type fileData struct {
	Package    string
	PolyImport string
	Tags       []tagData
	Interfaces []ifaceData
}

type tagData struct {
	Name string
}

type ifaceData struct {
	Name     string
	Ops      []opData
	Provides []provideData
}

type opData struct {
	Tag    string
	Method string
	Const  bool
	Shape  string // normalized function type, e.g. "func(float64) bool"
	Params []paramData
	Result string // "" for none
}

type paramData struct {
	Name string
	Type string
}

type provideData struct {
	Tag  string
	Func string
}

func buildFileData(cfg *Config) (*fileData, error) {
	data := &fileData{Package: cfg.Package, PolyImport: polyImportPath}

	seenTags := make(map[string]bool)
	for _, ifc := range cfg.Interfaces {
		id := ifaceData{Name: ifc.Name}
		for i := range ifc.Ops {
			op := &ifc.Ops[i]
			shape := op.Shape()
			if shape == nil {
				return nil, fmt.Errorf("interface %s, tag %s: config was not validated", ifc.Name, op.Tag)
			}
			if !seenTags[op.Tag] {
				seenTags[op.Tag] = true
				data.Tags = append(data.Tags, tagData{Name: op.Tag})
			}

			od := opData{
				Tag:    op.Tag,
				Method: op.MethodName(),
				Const:  op.Const,
				Shape:  shapeType(shape),
				Result: shape.Result,
			}
			for j, pt := range shape.Params {
				od.Params = append(od.Params, paramData{Name: fmt.Sprintf("a%d", j), Type: pt})
			}
			id.Ops = append(id.Ops, od)
		}

		for _, impl := range ifc.Implementations {
			// Registration order follows the interface's op order so the
			// generated file is deterministic.
			for _, op := range ifc.Ops {
				if fname, ok := impl.Funcs[op.Tag]; ok {
					id.Provides = append(id.Provides, provideData{Tag: op.Tag, Func: fname})
				}
			}
		}
		data.Interfaces = append(data.Interfaces, id)
	}
	return data, nil
}

// shapeType renders the normalized function type for a signature shape.
func shapeType(s *OpShape) string {
	var b strings.Builder
	b.WriteString("func(")
	b.WriteString(strings.Join(s.Params, ", "))
	b.WriteString(")")
	if s.Result != "" {
		b.WriteString(" ")
		b.WriteString(s.Result)
	}
	return b.String()
}

var fileTemplate = template.Must(template.New("morph").Funcs(template.FuncMap{
	"paramList": func(ps []paramData) string {
		parts := make([]string, len(ps))
		for i, p := range ps {
			parts[i] = p.Name + " " + p.Type
		}
		return strings.Join(parts, ", ")
	},
	"callExpr": func(handle string, op opData) string {
		args := make([]string, 0, len(op.Params)+1)
		args = append(args, handle)
		for _, p := range op.Params {
			args = append(args, p.Name)
		}
		if op.Result == "" {
			return fmt.Sprintf("poly.CallVoid[%s](%s)", op.Tag, strings.Join(args, ", "))
		}
		return fmt.Sprintf("return poly.Call[%s, %s](%s)", op.Tag, op.Result, strings.Join(args, ", "))
	},
}).Parse(`// Code generated by morph gen. DO NOT EDIT.

package {{.Package}}

import (
	"{{.PolyImport}}"
)

// Operation tags.
{{- range .Tags}}
type {{.Name}} struct{}
{{- end}}
{{range .Interfaces}}
// {{.Name}} is the {{.Name}} handle declaration.
var {{.Name}} = poly.MustInterface(
{{- range .Ops}}
	poly.{{if .Const}}ConstOp{{else}}Op{{end}}[{{.Tag}}](({{.Shape}})(nil)),
{{- end}}
)

// {{.Name}}Ref is a typed facade over a non-owning {{.Name}} handle.
type {{.Name}}Ref struct{ poly.Ref }

// New{{.Name}}Ref binds x: a pointer to a concrete instance, or another
// handle exposing a superset of {{.Name}}'s operations.
func New{{.Name}}Ref(x any) ({{.Name}}Ref, error) {
	r, err := {{.Name}}.Ref(x)
	if err != nil {
		return {{.Name}}Ref{}, err
	}
	return {{.Name}}Ref{Ref: r}, nil
}

// {{.Name}}Object is a typed facade over an owning {{.Name}} handle.
type {{.Name}}Object struct{ *poly.Object }

// New{{.Name}}Object wraps a concrete value, or clones another handle.
func New{{.Name}}Object(x any) ({{.Name}}Object, error) {
	o, err := {{.Name}}.Object(x)
	if err != nil {
		return {{.Name}}Object{}, err
	}
	return {{.Name}}Object{Object: o}, nil
}
{{$iface := .}}
{{- range .Ops}}
func (h {{$iface.Name}}Ref) {{.Method}}({{paramList .Params}}) {{.Result}} {
	{{callExpr "h.Ref" .}}
}

func (h {{$iface.Name}}Object) {{.Method}}({{paramList .Params}}) {{.Result}} {
	{{callExpr "h.Object" .}}
}
{{end}}
{{- if .Provides}}
func init() {
{{- range .Provides}}
	poly.Provide[{{.Tag}}]({{.Func}})
{{- end}}
}
{{- end}}
{{end}}`))
