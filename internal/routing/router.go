package routing

import (
	"sort"
	"sync"

	"stemdeck/internal/stems"
)

// DeviceID names a logical output device.
type DeviceID string

// Device is a configured output target shown in the routing view.
type Device struct {
	ID   DeviceID
	Name string
}

// Routing maps each stem to the set of devices it is sent to. A missing stem
// key means the stem is not routed anywhere.
type Routing map[stems.Name]map[DeviceID]struct{}

// Clone returns a deep copy.
func (r Routing) Clone() Routing {
	out := make(Routing, len(r))
	for stem, devices := range r {
		set := make(map[DeviceID]struct{}, len(devices))
		for id := range devices {
			set[id] = struct{}{}
		}
		out[stem] = set
	}
	return out
}

// Devices returns the sorted device ids routed for stem.
func (r Routing) Devices(stem stems.Name) []DeviceID {
	ids := make([]DeviceID, 0, len(r[stem]))
	for id := range r[stem] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Has reports whether stem is routed to device.
func (r Routing) Has(stem stems.Name, device DeviceID) bool {
	_, ok := r[stem][device]
	return ok
}

// Equal reports whether both mappings route the same stems to the same devices.
// A stem with an empty set equals an absent stem.
func (r Routing) Equal(other Routing) bool {
	for stem, devices := range r {
		if len(devices) != len(other[stem]) {
			return false
		}
		for id := range devices {
			if !other.Has(stem, id) {
				return false
			}
		}
	}
	for stem, devices := range other {
		if len(devices) != len(r[stem]) {
			return false
		}
	}
	return true
}

// Router owns a routing table and notifies subscribers after each change.
// No audio is actually redirected; the table drives the display only.
type Router struct {
	mu          sync.Mutex
	devices     []Device
	routing     Routing
	subscribers map[int]func(Routing)
	nextID      int
}

// NewRouter seeds one default device per stem, assigned round-robin.
func NewRouter(devices []Device, names []stems.Name) *Router {
	r := &Router{
		devices:     append([]Device(nil), devices...),
		routing:     make(Routing),
		subscribers: make(map[int]func(Routing)),
	}
	if len(devices) == 0 {
		return r
	}
	for i, name := range names {
		r.routing[name] = map[DeviceID]struct{}{devices[i%len(devices)].ID: {}}
	}
	return r
}

// Devices returns the configured devices.
func (r *Router) Devices() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Device(nil), r.devices...)
}

// Snapshot returns a deep copy of the current routing.
func (r *Router) Snapshot() Routing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routing.Clone()
}

// Toggle flips whether stem is routed to device and notifies subscribers with
// the full updated mapping. Toggling the same pair twice restores the
// original mapping.
func (r *Router) Toggle(stem stems.Name, device DeviceID) Routing {
	r.mu.Lock()
	set, ok := r.routing[stem]
	if !ok {
		set = make(map[DeviceID]struct{})
		r.routing[stem] = set
	}
	if _, routed := set[device]; routed {
		delete(set, device)
	} else {
		set[device] = struct{}{}
	}
	if len(set) == 0 {
		delete(r.routing, stem)
	}
	snapshot := r.routing.Clone()
	subs := make([]func(Routing), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot.Clone())
	}
	return snapshot
}

// Subscribe registers fn for change notifications and returns a cancel func.
func (r *Router) Subscribe(fn func(Routing)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subscribers[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
}
