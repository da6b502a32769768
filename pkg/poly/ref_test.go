package poly

import (
	"errors"
	"math"
	"testing"
)

func mustRef(t *testing.T, in *Interface, x any) Ref {
	t.Helper()
	r, err := in.Ref(x)
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	return r
}

func TestRefDispatchMatchesDirectCall(t *testing.T) {
	c := Circle{Radius: 3}
	r := mustRef(t, shapeIface, &c)

	if got, want := Call[AreaOp, float64](r), circleArea(c); got != want {
		t.Errorf("area via handle = %v, direct = %v", got, want)
	}
	if got, want := Call[PerimeterOp, float64](r), circlePerim(c); got != want {
		t.Errorf("perimeter via handle = %v, direct = %v", got, want)
	}

	CallVoid[ScaleOp](r, 2.0)
	if c.Radius != 6 {
		t.Errorf("scale through handle did not mutate the bound instance: radius = %v", c.Radius)
	}
}

func TestRefOverSublistDispatchesSameFunctions(t *testing.T) {
	rc := Rect{W: 2, H: 5}
	r := mustRef(t, areaOnly, &rc)
	if got := Call[AreaOp, float64](r); got != 10 {
		t.Errorf("area = %v, want 10", got)
	}
}

func TestNarrowingTransitiveAndOrderIndependent(t *testing.T) {
	c := Circle{Radius: 1.5}

	full := mustRef(t, shapeIface, &c)

	// full -> {area, scale} -> {area} must dispatch exactly like full -> {area}.
	mid := mustRef(t, areaScale, full)
	twoStep := mustRef(t, areaOnly, mid)
	oneStep := mustRef(t, areaOnly, full)

	want := circleArea(c)
	if got := Call[AreaOp, float64](twoStep); got != want {
		t.Errorf("two-step narrow dispatched %v, want %v", got, want)
	}
	if got := Call[AreaOp, float64](oneStep); got != want {
		t.Errorf("direct narrow dispatched %v, want %v", got, want)
	}

	// Narrowed handles share the bound instance: mutation through one view
	// is visible through all.
	CallVoid[ScaleOp](mid, 2.0)
	if got := Call[AreaOp, float64](twoStep); got != circleArea(c) {
		t.Errorf("narrowed view went stale after mutation: %v vs %v", got, circleArea(c))
	}
}

func TestRefConstructionErrors(t *testing.T) {
	if _, err := shapeIface.Ref(Circle{}); !errors.Is(err, ErrNotPointer) {
		t.Errorf("value binding: err = %v, want ErrNotPointer", err)
	}
	if _, err := shapeIface.Ref(nil); !errors.Is(err, ErrNotPointer) {
		t.Errorf("nil binding: err = %v, want ErrNotPointer", err)
	}
	var np *Circle
	if _, err := shapeIface.Ref(np); !errors.Is(err, ErrNotPointer) {
		t.Errorf("nil pointer binding: err = %v, want ErrNotPointer", err)
	}

	// No implementations registered for this type at all.
	type stranger struct{}
	if _, err := areaOnly.Ref(&stranger{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("unimplemented type: err = %v, want ErrNotImplemented", err)
	}
}

func TestRefRejectsReceiverModeMismatch(t *testing.T) {
	// badRecv implements the const AreaOp on a pointer receiver.
	if _, err := areaOnly.Ref(&badRecv{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("const/mutable mismatch: err = %v, want ErrNotImplemented", err)
	}
}

func TestNarrowingToMissingOperationFails(t *testing.T) {
	tr := Tracked{N: 1}
	r := mustRef(t, roCount, &tr)
	if _, err := roWide.Ref(r); !errors.Is(err, ErrIncompatible) {
		t.Errorf("widening: err = %v, want ErrIncompatible", err)
	}
}

func TestLookAlikeIsNotAHandle(t *testing.T) {
	// lookAlike has Valid/Vtable/Pointer members, but the sealed Handle
	// interface must still route it through the wrap-as-concrete path,
	// which fails for lack of registered implementations.
	if _, err := areaOnly.Ref(&lookAlike{bound: true}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("look-alike taken for a handle: err = %v, want ErrNotImplemented", err)
	}
}

func TestRefValidity(t *testing.T) {
	var zero Ref
	if zero.Valid() {
		t.Error("zero Ref reports valid")
	}
	c := Circle{Radius: 1}
	r := mustRef(t, areaOnly, &c)
	if !r.Valid() {
		t.Error("bound Ref reports invalid")
	}
	if r.Pointer() != &c {
		t.Error("Pointer does not return the bound instance")
	}
}

func TestCircleScenario(t *testing.T) {
	c := Circle{Radius: 2}
	obj, err := shapeIface.Object(c)
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	defer obj.Release()

	const tol = 1e-9
	if got := Call[AreaOp, float64](obj); math.Abs(got-math.Pi*4) > tol {
		t.Errorf("area = %v, want %v", got, math.Pi*4)
	}
	CallVoid[ScaleOp](obj, 2.0)
	if got := Call[AreaOp, float64](obj); math.Abs(got-math.Pi*16) > tol {
		t.Errorf("area after scale = %v, want %v", got, math.Pi*16)
	}
}
