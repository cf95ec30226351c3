package objecturl

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestHandleReleaseExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	h := reg.Create([]byte("payload"))
	if !IsObjectURL(h.URL()) {
		t.Fatalf("unexpected url %q", h.URL())
	}
	if reg.Live() != 1 {
		t.Fatalf("expected 1 live handle, got %d", reg.Live())
	}
	data, err := reg.Fetch(context.Background(), h.URL())
	if err != nil || string(data) != "payload" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}

	var wg sync.WaitGroup
	releases := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			releases <- h.Release()
		}()
	}
	wg.Wait()
	close(releases)
	count := 0
	for ok := range releases {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one effective release, got %d", count)
	}
	if reg.Live() != 0 {
		t.Fatalf("expected no live handles, got %d", reg.Live())
	}
	if _, err := reg.Resolve(h.URL()); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
}

func TestHandlesAreDistinct(t *testing.T) {
	reg := NewRegistry()
	a := reg.Create(nil)
	b := reg.Create(nil)
	if a.URL() == b.URL() {
		t.Fatal("expected unique urls")
	}
	a.Release()
	if reg.Live() != 1 {
		t.Fatalf("releasing one handle should leave the other, live=%d", reg.Live())
	}
	var nilHandle *Handle
	if nilHandle.Release() {
		t.Fatal("nil handle release should be a no-op")
	}
}
