package poly

import (
	"errors"
	"testing"

	"github.com/funvibe/morph/internal/config"
)

type dupOp struct{}
type dupRecv struct{}

// wrongShape implements the const AreaOp with the wrong result type.
type wrongShape struct{}

// Registered once at package init so the tests stay green when the package
// runs more than once in a process (go test -count=2).
func init() {
	Provide[dupOp](func(dupRecv) {})
	Provide[AreaOp](func(wrongShape) int { return 0 })
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestProvideMisusePanics(t *testing.T) {
	expectPanic(t, "non-function", func() {
		Provide[dupOp](42)
	})
	expectPanic(t, "nil", func() {
		Provide[dupOp](nil)
	})
	expectPanic(t, "no receiver slot", func() {
		Provide[dupOp](func() {})
	})
	expectPanic(t, "variadic", func() {
		Provide[dupOp](func(d dupRecv, xs ...int) {})
	})
	// dupOp/dupRecv is registered at init; a second registration panics.
	expectPanic(t, "duplicate registration", func() {
		Provide[dupOp](func(d dupRecv) {})
	})
}

func TestSignatureShapeMisusePanics(t *testing.T) {
	type anyOp struct{}
	expectPanic(t, "non-func shape", func() {
		Op[anyOp]("func()")
	})
	expectPanic(t, "multi-result shape", func() {
		Op[anyOp]((func() (int, error))(nil))
	})
	expectPanic(t, "variadic shape", func() {
		Op[anyOp]((func(...int))(nil))
	})
}

func TestArgumentConversion(t *testing.T) {
	c := Circle{Radius: 1}
	r, err := shapeIface.Ref(&c)
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	// An int argument for a float64 parameter converts.
	CallVoid[ScaleOp](r, 3)
	if c.Radius != 3 {
		t.Errorf("radius = %v after int-argument scale, want 3", c.Radius)
	}
}

func TestCallWithWrongTagPanics(t *testing.T) {
	type outsider struct{}
	c := Circle{Radius: 1}
	r, err := areaOnly.Ref(&c)
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	expectPanic(t, "tag outside the declared list", func() {
		Call[outsider, int](r)
	})
	expectPanic(t, "wrong argument count", func() {
		CallVoid[AreaOp](r, 1, 2)
	})
}

func TestDebugChecksFlagEmptyHandle(t *testing.T) {
	config.DebugChecks = true
	defer func() { config.DebugChecks = false }()

	obj := mustObject(t, shapeIface, Circle{Radius: 1})
	moved := obj.Move()
	defer moved.Release()

	expectPanic(t, "dispatch through moved-from handle", func() {
		Call[AreaOp, float64](obj)
	})
}

func TestShapeMismatchSurfacesAtConstruction(t *testing.T) {
	// wrongShape implements AreaOp with an int result; the error must
	// surface when the table is built, not at call time.
	if _, err := areaOnly.Ref(&wrongShape{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("mismatched result type: err = %v, want ErrNotImplemented", err)
	}
}

func TestTablesAreCachedPerConcreteType(t *testing.T) {
	c1, c2 := Circle{Radius: 1}, Circle{Radius: 2}
	r1 := mustRef(t, areaScale, &c1)
	r2 := mustRef(t, areaScale, &c2)
	if r1.vt != r2.vt {
		t.Error("two refs over the same (interface, type) pair use different tables")
	}
}
