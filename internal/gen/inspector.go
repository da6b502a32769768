package gen

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// Problem is one conformance finding: a declared implementation function
// that is missing or has the wrong shape.
type Problem struct {
	Interface string
	Type      string
	Tag       string
	Func      string
	Message   string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s.%s (func %s): %s", p.Interface, p.Type, p.Tag, p.Func, p.Message)
}

// Report summarizes a conformance check across every implementation
// mapping in a config.
type Report struct {
	// Checked counts the (type, operation) pairs examined.
	Checked int

	// Problems lists everything that would fail handle construction.
	Problems []Problem
}

// OK reports whether every checked implementation conforms.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Verify type-checks the Go package in dir and checks every implementation
// function named in cfg against the shape its operation demands: receiver
// mode from const-ness (value receiver for const operations, pointer for
// mutating ones), then parameter and result types from the declared
// signature. This is the same check the runtime performs when a table is
// first built, surfaced before the program runs.
func Verify(dir string, cfg *Config) (*Report, error) {
	pcfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo |
			packages.NeedSyntax | packages.NeedImports | packages.NeedDeps,
		Dir:  dir,
	}
	pkgs, err := packages.Load(pcfg, ".")
	if err != nil {
		return nil, fmt.Errorf("loading package in %s: %w", dir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no Go package found in %s", dir)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package %s does not type-check: %v", pkg.PkgPath, pkg.Errors[0])
	}

	scope := pkg.Types.Scope()
	qual := types.RelativeTo(pkg.Types)
	report := &Report{}

	for _, ifc := range cfg.Interfaces {
		ops := make(map[string]*OpSpec, len(ifc.Ops))
		for i := range ifc.Ops {
			ops[ifc.Ops[i].Tag] = &ifc.Ops[i]
		}

		for _, impl := range ifc.Implementations {
			// Deterministic output regardless of map order.
			tags := make([]string, 0, len(impl.Funcs))
			for tag := range impl.Funcs {
				tags = append(tags, tag)
			}
			sort.Strings(tags)

			for _, tag := range tags {
				fname := impl.Funcs[tag]
				report.Checked++
				op := ops[tag] // present; validated by ParseConfig

				add := func(msg string, args ...any) {
					report.Problems = append(report.Problems, Problem{
						Interface: ifc.Name,
						Type:      impl.Type,
						Tag:       tag,
						Func:      fname,
						Message:   fmt.Sprintf(msg, args...),
					})
				}

				obj := scope.Lookup(fname)
				if obj == nil {
					add("function not found in package %s", pkg.Name)
					continue
				}
				fn, ok := obj.(*types.Func)
				if !ok {
					add("%s is %s, not a function", fname, obj.Type().String())
					continue
				}
				sig := fn.Type().(*types.Signature)
				checkShape(sig, op, impl.Type, qual, add)
			}
		}
	}
	return report, nil
}

func checkShape(sig *types.Signature, op *OpSpec, typeName string, qual types.Qualifier, add func(string, ...any)) {
	shape := op.Shape()
	params := sig.Params()

	if sig.Variadic() {
		add("implementation is variadic")
		return
	}
	if params.Len() != len(shape.Params)+1 {
		add("has %d parameters, want %d (receiver + declared parameters)", params.Len(), len(shape.Params)+1)
		return
	}

	wantRecv := typeName
	if !op.Const {
		wantRecv = "*" + typeName
	}
	if got := types.TypeString(params.At(0).Type(), qual); got != wantRecv {
		add("receiver is %s, want %s (%s operation)", got, wantRecv, constWord(op.Const))
	}

	for i, want := range shape.Params {
		if got := types.TypeString(params.At(i+1).Type(), qual); got != want {
			add("parameter %d is %s, want %s", i+1, got, want)
		}
	}

	results := sig.Results()
	switch {
	case shape.Result == "" && results.Len() != 0:
		add("returns %d values, operation declares none", results.Len())
	case shape.Result != "" && results.Len() != 1:
		add("returns %d values, want one %s", results.Len(), shape.Result)
	case shape.Result != "":
		if got := types.TypeString(results.At(0).Type(), qual); got != shape.Result {
			add("returns %s, want %s", got, shape.Result)
		}
	}
}

func constWord(c bool) string {
	if c {
		return "const"
	}
	return "mutating"
}
