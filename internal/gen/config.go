// Package gen implements the morph.yaml toolchain: parsing interface
// declarations, generating the Go glue (tag types, interface values, typed
// facades, Provide registrations), and statically verifying that concrete
// types provide the declared free functions.
//
// The generator exists to restore a true compile-time conformance check:
// generated code references the implementation functions directly, so a
// missing or misshapen free function fails `go build` instead of surfacing
// when the first handle is constructed.
package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level morph.yaml configuration.
type Config struct {
	// Package is the Go package name the generated file belongs to.
	Package string `yaml:"package"`

	// Interfaces lists the handle declarations to generate.
	Interfaces []InterfaceSpec `yaml:"interfaces"`
}

// InterfaceSpec declares one interface: an ordered operation list and,
// optionally, the concrete types implementing it.
type InterfaceSpec struct {
	// Name is the Go identifier of the generated interface value
	// (e.g. "Shape"). Facade types derive from it (ShapeRef, ShapeObject).
	Name string `yaml:"name"`

	// Ops is the ordered signature list.
	Ops []OpSpec `yaml:"ops"`

	// Implementations wires concrete types to their free functions; each
	// entry produces poly.Provide registrations in the generated init().
	Implementations []ImplementationSpec `yaml:"implementations,omitempty"`
}

// OpSpec declares a single operation.
type OpSpec struct {
	// Tag is the Go identifier of the operation's marker type (e.g. "AreaOp").
	Tag string `yaml:"tag"`

	// Signature is the operation's shape without the receiver slot,
	// as a Go function type (e.g. "func(float64)" or "func() float64").
	Signature string `yaml:"signature"`

	// Const marks the operation const-qualified: implementations take the
	// concrete type by value and cannot mutate it.
	Const bool `yaml:"const,omitempty"`

	shape *OpShape // parsed from Signature during validation
}

// Shape returns the parsed signature shape. Valid after ParseConfig.
func (o *OpSpec) Shape() *OpShape { return o.shape }

// MethodName is the facade method name derived from the tag:
// a trailing "Op" is stripped (AreaOp → Area).
func (o *OpSpec) MethodName() string {
	if strings.HasSuffix(o.Tag, "Op") && len(o.Tag) > 2 {
		return strings.TrimSuffix(o.Tag, "Op")
	}
	return o.Tag
}

// ImplementationSpec wires one concrete type to its free functions.
type ImplementationSpec struct {
	// Type is the concrete Go type name (in the generated file's package).
	Type string `yaml:"type"`

	// Funcs maps operation tags to the implementing function names.
	Funcs map[string]string `yaml:"funcs"`
}

// OpShape is a parsed operation signature: parameter type expressions and
// the result type expression ("" for none), both receiver-excluded.
type OpShape struct {
	Params []string
	Result string
}

// ParseConfig parses and validates morph.yaml data. filename is used in
// error messages only.
func ParseConfig(data []byte, filename string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !token.IsIdentifier(c.Package) {
		return fmt.Errorf("package %q is not a valid Go identifier", c.Package)
	}
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("no interfaces declared")
	}

	// A tag may be shared across interfaces (same tag = same operation),
	// but its signature and const-ness must agree everywhere.
	seenOps := make(map[string]*OpSpec)

	// A (type, tag) pair may be mapped only once across the whole config:
	// the generated init() registers each pair with poly.Provide, and a
	// second registration panics at program start.
	providedBy := make(map[string]string) // "Type.Tag" → interface name

	for i := range c.Interfaces {
		ifc := &c.Interfaces[i]
		if !token.IsIdentifier(ifc.Name) {
			return fmt.Errorf("interface name %q is not a valid Go identifier", ifc.Name)
		}
		if len(ifc.Ops) == 0 {
			return fmt.Errorf("interface %s declares no operations", ifc.Name)
		}

		local := make(map[string]bool)
		for j := range ifc.Ops {
			op := &ifc.Ops[j]
			if !token.IsIdentifier(op.Tag) {
				return fmt.Errorf("interface %s: tag %q is not a valid Go identifier", ifc.Name, op.Tag)
			}
			if op.Tag == ifc.Name {
				return fmt.Errorf("interface %s: tag %q collides with the interface name", ifc.Name, op.Tag)
			}
			if local[op.Tag] {
				return fmt.Errorf("interface %s: duplicate tag %s", ifc.Name, op.Tag)
			}
			local[op.Tag] = true

			shape, err := parseOpSignature(op.Signature)
			if err != nil {
				return fmt.Errorf("interface %s, tag %s: %w", ifc.Name, op.Tag, err)
			}
			op.shape = shape

			if prev, ok := seenOps[op.Tag]; ok {
				if prev.Signature != op.Signature || prev.Const != op.Const {
					return fmt.Errorf("tag %s declared with conflicting signatures (%q vs %q)",
						op.Tag, prev.Signature, op.Signature)
				}
			} else {
				seenOps[op.Tag] = op
			}
		}

		for _, impl := range ifc.Implementations {
			if !token.IsIdentifier(impl.Type) {
				return fmt.Errorf("interface %s: implementation type %q is not a valid Go identifier", ifc.Name, impl.Type)
			}
			if len(impl.Funcs) == 0 {
				return fmt.Errorf("interface %s, type %s: no functions mapped", ifc.Name, impl.Type)
			}
			for tag, fname := range impl.Funcs {
				if !local[tag] {
					return fmt.Errorf("interface %s, type %s: %s is not a declared tag", ifc.Name, impl.Type, tag)
				}
				if !token.IsIdentifier(fname) {
					return fmt.Errorf("interface %s, type %s: function name %q is not a valid Go identifier", ifc.Name, impl.Type, fname)
				}
				pk := impl.Type + "." + tag
				if prev, dup := providedBy[pk]; dup {
					return fmt.Errorf("type %s: %s is already mapped by interface %s; each (type, operation) pair is registered once", impl.Type, tag, prev)
				}
				providedBy[pk] = ifc.Name
			}
		}
	}
	return nil
}

// parseOpSignature parses a receiver-less Go function type such as
// "func(float64) bool". At most one result; variadic shapes are rejected,
// matching what the dispatch layer supports.
func parseOpSignature(src string) (*OpShape, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("missing signature")
	}
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", src, err)
	}
	ft, ok := expr.(*ast.FuncType)
	if !ok {
		return nil, fmt.Errorf("signature %q is not a function type", src)
	}
	if ft.TypeParams != nil {
		return nil, fmt.Errorf("signature %q: generic operations are not supported", src)
	}

	shape := &OpShape{}
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			if _, variadic := field.Type.(*ast.Ellipsis); variadic {
				return nil, fmt.Errorf("signature %q: variadic operations are not supported", src)
			}
			n := len(field.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				shape.Params = append(shape.Params, types.ExprString(field.Type))
			}
		}
	}
	if ft.Results != nil {
		if len(ft.Results.List) > 1 || (len(ft.Results.List) == 1 && len(ft.Results.List[0].Names) > 1) {
			return nil, fmt.Errorf("signature %q: operations return at most one value", src)
		}
		if len(ft.Results.List) == 1 {
			shape.Result = types.ExprString(ft.Results.List[0].Type)
		}
	}
	return shape, nil
}
