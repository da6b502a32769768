package tags

import (
	"reflect"
	"sync"
	"testing"
)

type markerA struct{}
type markerB struct{}

func TestOfIsStableAndDistinct(t *testing.T) {
	a1 := Of[markerA]()
	a2 := Of[markerA]()
	b := Of[markerB]()
	if a1 != a2 {
		t.Errorf("Of[markerA] not stable: %d vs %d", a1, a2)
	}
	if a1 == b {
		t.Errorf("distinct markers interned to the same ID %d", a1)
	}
}

func TestNameAndTypeOf(t *testing.T) {
	id := Of[markerA]()
	if got := TypeOf(id); got != reflect.TypeOf(markerA{}) {
		t.Errorf("TypeOf(%d) = %v", id, got)
	}
	if Name(id) == "" || Name(id) == "<unknown tag>" {
		t.Errorf("Name(%d) = %q", id, Name(id))
	}
	if Name(ID(1 << 20)) != "<unknown tag>" {
		t.Error("unassigned ID should report <unknown tag>")
	}
}

func TestConcurrentIntern(t *testing.T) {
	rt := reflect.TypeOf(struct{ concurrent bool }{})
	var wg sync.WaitGroup
	got := make([]ID, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Intern(rt)
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("racy interning: got[%d]=%d, got[0]=%d", i, got[i], got[0])
		}
	}
}
