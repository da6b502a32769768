package poly

import (
	"math"
	"sync/atomic"

	"github.com/funvibe/morph/internal/vtable"
)

// Operation tags shared by the tests.
type AreaOp struct{}
type ScaleOp struct{}
type PerimeterOp struct{}
type NameOp struct{}
type CountOp struct{}
type BumpOp struct{}
type BytesOp struct{}
type AppendOp struct{}

var (
	sigArea   = ConstOp[AreaOp]((func() float64)(nil))
	sigScale  = Op[ScaleOp]((func(float64))(nil))
	sigPerim  = ConstOp[PerimeterOp]((func() float64)(nil))
	sigName   = ConstOp[NameOp]((func() string)(nil))
	sigCount  = ConstOp[CountOp]((func() int)(nil))
	sigBump   = Op[BumpOp]((func())(nil))
	sigBytes  = ConstOp[BytesOp]((func() []byte)(nil))
	sigAppend = Op[AppendOp]((func(byte))(nil))
)

var (
	shapeIface   = MustInterface(sigArea, sigScale, sigPerim) // exclusive storage
	areaScale    = MustInterface(sigArea, sigScale)
	areaOnly     = MustInterface(sigArea)
	roWide       = MustInterface(sigCount, sigName) // shared storage
	roCount      = MustInterface(sigCount)
	copyableArea = MustInterface(sigArea, Copyable)
	shapeCopy    = MustInterface(sigArea, sigScale, sigPerim, Copyable)
	trackedMut   = MustInterface(sigCount, sigBump)
	bufIface     = MustInterface(sigBytes, sigAppend)
)

// Circle and Rect implement the shape operations as free functions.
type Circle struct{ Radius float64 }
type Rect struct{ W, H float64 }

func circleArea(c Circle) float64 { return math.Pi * c.Radius * c.Radius }
func circleScale(c *Circle, f float64) { c.Radius *= f }
func circlePerim(c Circle) float64 { return 2 * math.Pi * c.Radius }
func circleName(c Circle) string { return "circle" }
func rectArea(r Rect) float64 { return r.W * r.H }
func rectScale(r *Rect, f float64) { r.W *= f; r.H *= f }
func rectPerim(r Rect) float64 { return 2 * (r.W + r.H) }

// Tracked instruments clone and dispose so tests can assert copy/move/release
// behavior. Counters are package-wide; tests read deltas.
type Tracked struct{ N int }

var (
	trackedClones   atomic.Int64
	trackedDisposed atomic.Int64
)

// lookAlike exposes members shaped like a handle's but is a plain concrete
// type; the sealed Handle interface must not classify it as a handle.
type lookAlike struct{ bound bool }

func (l lookAlike) Valid() bool { return l.bound }
func (l lookAlike) Vtable() *vtable.Table { return nil }
func (l lookAlike) Pointer() any { return nil }

// Buf holds a slice, so the default assignment clone would share backing
// storage; it registers a deep clone instead.
type Buf struct{ data []byte }

// badRecv registers the const AreaOp with a pointer receiver; building any
// handle over it must fail.
type badRecv struct{}

func init() {
	Provide[AreaOp](circleArea)
	Provide[ScaleOp](circleScale)
	Provide[PerimeterOp](circlePerim)
	Provide[NameOp](circleName)

	Provide[AreaOp](rectArea)
	Provide[ScaleOp](rectScale)
	Provide[PerimeterOp](rectPerim)

	Provide[CountOp](func(t Tracked) int { return t.N })
	Provide[NameOp](func(t Tracked) string { return "tracked" })
	Provide[BumpOp](func(t *Tracked) { t.N++ })
	ProvideClone[Tracked](func(t Tracked) Tracked {
		trackedClones.Add(1)
		return t
	})
	ProvideDisposer[Tracked](func(*Tracked) {
		trackedDisposed.Add(1)
	})

	Provide[BytesOp](func(b Buf) []byte { return b.data })
	Provide[AppendOp](func(b *Buf, x byte) { b.data = append(b.data, x) })
	ProvideClone[Buf](func(b Buf) Buf {
		return Buf{data: append([]byte(nil), b.data...)}
	})

	Provide[AreaOp](func(b *badRecv) float64 { return 0 })
}
