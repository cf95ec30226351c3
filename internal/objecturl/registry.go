package objecturl

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every URL the registry hands out.
const Scheme = "blob:stemdeck/"

// ErrReleased is returned when resolving a URL whose handle was released.
var ErrReleased = errors.New("object url released")

// Registry owns in-memory payloads addressed by ephemeral URLs. Every handle
// must be released by its owner; Live reports what is still outstanding.
type Registry struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string][]byte)}
}

// Handle is the single owner of one registered URL.
type Handle struct {
	url      string
	registry *Registry
	once     sync.Once
}

// Create registers data and returns its handle.
func (r *Registry) Create(data []byte) *Handle {
	url := Scheme + uuid.NewString()
	r.mu.Lock()
	r.entries[url] = data
	r.mu.Unlock()
	return &Handle{url: url, registry: r}
}

// URL returns the handle's address.
func (h *Handle) URL() string {
	if h == nil {
		return ""
	}
	return h.url
}

// Release revokes the URL. Only the first call has any effect; it reports
// whether this call performed the release.
func (h *Handle) Release() bool {
	if h == nil {
		return false
	}
	released := false
	h.once.Do(func() {
		h.registry.mu.Lock()
		delete(h.registry.entries, h.url)
		h.registry.mu.Unlock()
		released = true
	})
	return released
}

// Resolve returns the payload for url.
func (r *Registry) Resolve(url string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.entries[url]
	if !ok {
		return nil, ErrReleased
	}
	return data, nil
}

// Fetch satisfies audio.AssetFetcher for blob URLs.
func (r *Registry) Fetch(_ context.Context, url string) ([]byte, error) {
	return r.Resolve(url)
}

// Live returns the number of unreleased handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsObjectURL reports whether url was minted by a registry.
func IsObjectURL(url string) bool {
	return strings.HasPrefix(url, Scheme)
}
