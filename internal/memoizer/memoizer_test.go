package memoizer

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoInvokedOnce(t *testing.T) {
	m := New()
	var calls int32

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := Memo(m, "0xtoken", "balance", []Arg{"account-1"}, func() (int, error) {
				atomic.AddInt32(&calls, 1)
				return 42, nil
			})
			if err != nil {
				t.Errorf("Memo failed: %v", err)
			}
			results[idx] = v
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected compute to run exactly once, ran %d times", calls)
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("expected every caller to observe 42, got %d", v)
		}
	}
}

func TestMemoDistinctArgsRecompute(t *testing.T) {
	m := New()
	var calls int32
	compute := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	v1, _ := Memo(m, "0xtoken", "balance", []Arg{"a"}, compute)
	v2, _ := Memo(m, "0xtoken", "balance", []Arg{"b"}, compute)
	if v1 == v2 {
		t.Fatalf("expected distinct args to recompute, got same value %d", v1)
	}
}

func TestDeleteScopeDropsEntries(t *testing.T) {
	m := New()
	var calls int32
	compute := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	Memo(m, "0xtoken", "k", nil, compute)
	m.DeleteScope("0xtoken")
	Memo(m, "0xtoken", "k", nil, compute)
	if calls != 2 {
		t.Fatalf("expected recompute after DeleteScope, calls=%d", calls)
	}
}
