package routing

import (
	"reflect"
	"testing"

	"stemdeck/internal/stems"
)

var testDevices = []Device{
	{ID: "speakers", Name: "Studio Speakers"},
	{ID: "headphones", Name: "Headphones"},
}

func TestNewRouterSeedsRoundRobin(t *testing.T) {
	r := NewRouter(testDevices, stems.SetFour.Names())
	snap := r.Snapshot()
	want := map[stems.Name]DeviceID{
		stems.Vocals: "speakers",
		stems.Drums:  "headphones",
		stems.Bass:   "speakers",
		stems.Other:  "headphones",
	}
	for stem, device := range want {
		if got := snap.Devices(stem); !reflect.DeepEqual(got, []DeviceID{device}) {
			t.Fatalf("%s: expected [%s], got %v", stem, device, got)
		}
	}
}

func TestNewRouterWithoutDevices(t *testing.T) {
	r := NewRouter(nil, stems.SetTwo.Names())
	if len(r.Snapshot()) != 0 {
		t.Fatal("expected empty routing without devices")
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	pairs := []struct {
		stem   stems.Name
		device DeviceID
	}{
		{stems.Vocals, "speakers"},
		{stems.Vocals, "headphones"},
		{stems.NoVocals, "speakers"},
		{stems.Drums, "bluetooth"},
	}
	for _, p := range pairs {
		r := NewRouter(testDevices, stems.SetTwo.Names())
		original := r.Snapshot()
		r.Toggle(p.stem, p.device)
		if r.Snapshot().Equal(original) {
			t.Fatalf("%s/%s: single toggle should change routing", p.stem, p.device)
		}
		r.Toggle(p.stem, p.device)
		if !r.Snapshot().Equal(original) {
			t.Fatalf("%s/%s: double toggle should restore routing", p.stem, p.device)
		}
	}
}

func TestToggleAllowsManyToMany(t *testing.T) {
	r := NewRouter(testDevices, stems.SetTwo.Names())
	r.Toggle(stems.Vocals, "headphones")
	snap := r.Snapshot()
	if !snap.Has(stems.Vocals, "speakers") || !snap.Has(stems.Vocals, "headphones") {
		t.Fatalf("expected vocals on both devices, got %v", snap.Devices(stems.Vocals))
	}
	if !snap.Has(stems.NoVocals, "headphones") {
		t.Fatal("device should be shareable across stems")
	}
}

func TestSubscribersReceiveIndependentCopies(t *testing.T) {
	r := NewRouter(testDevices, stems.SetTwo.Names())
	var received []Routing
	cancel := r.Subscribe(func(m Routing) {
		received = append(received, m)
		delete(m, stems.Vocals)
	})
	r.Toggle(stems.NoVocals, "speakers")
	if len(received) != 1 {
		t.Fatalf("expected one notification, got %d", len(received))
	}
	if !r.Snapshot().Has(stems.Vocals, "speakers") {
		t.Fatal("subscriber mutation leaked into router state")
	}
	cancel()
	r.Toggle(stems.NoVocals, "speakers")
	if len(received) != 1 {
		t.Fatal("cancelled subscriber should not be notified")
	}
}
