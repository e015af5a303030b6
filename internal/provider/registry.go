// Package provider tracks which variables provider is selected for each
// open document, and the documents themselves. The variable tree engine
// resolves providers through the registry on every fetch, so swapping a
// document's provider takes effect on the next expansion.
package provider

import (
	"log/slog"
	"sync"

	"github.com/leapstack-labs/varlens/pkg/vars"
)

// Registry maps document URIs to their selected variables provider.
// It implements vars.ProviderResolver. Thread-safe for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	byURI  map[string]vars.Provider
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byURI:  make(map[string]vars.Provider),
		logger: logger,
	}
}

// Register selects p as the provider for uri, replacing any previous
// selection.
func (r *Registry) Register(uri string, p vars.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, replaced := r.byURI[uri]; replaced {
		r.logger.Debug("replacing variables provider", "uri", uri)
	}
	r.byURI[uri] = p
}

// Unregister removes the provider selected for uri, if any.
func (r *Registry) Unregister(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byURI, uri)
}

// For returns the provider currently selected for uri, or nil when none is.
func (r *Registry) For(uri string) vars.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byURI[uri]
}

// List returns the URIs with a selected provider.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uris := make([]string, 0, len(r.byURI))
	for uri := range r.byURI {
		uris = append(uris, uri)
	}
	return uris
}
