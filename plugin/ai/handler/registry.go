package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ModuleStates reports per-tenant module toggles. Modules absent from the map are enabled.
type ModuleStates interface {
	GetModuleStates(ctx context.Context, tenantID string) (map[string]bool, error)
}

// Registry is the immutable catalog of handlers keyed by intent id.
type Registry struct {
	ordered []Handler
	byID    map[string]Handler
	states  ModuleStates
}

// NewRegistry builds a registry. Handler ids must be unique.
func NewRegistry(states ModuleStates, handlers ...Handler) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]Handler, len(handlers)),
		states: states,
	}
	for _, h := range handlers {
		id := h.ID()
		if id == "" {
			return nil, errors.New("handler id must not be empty")
		}
		if _, dup := r.byID[id]; dup {
			return nil, errors.Errorf("duplicate handler id %q", id)
		}
		r.byID[id] = h
		r.ordered = append(r.ordered, h)
	}
	return r, nil
}

// Resolve looks up a handler by intent id.
func (r *Registry) Resolve(id string) (Handler, bool) {
	h, ok := r.byID[id]
	return h, ok
}

// All returns every registered handler in registration order.
func (r *Registry) All() []Handler {
	return append([]Handler(nil), r.ordered...)
}

// ListEnabled returns the handlers enabled for a tenant, in registration order.
func (r *Registry) ListEnabled(ctx context.Context, tenantID string) ([]Handler, error) {
	if r.states == nil {
		return r.All(), nil
	}
	states, err := r.states.GetModuleStates(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load module states")
	}
	enabled := make([]Handler, 0, len(r.ordered))
	for _, h := range r.ordered {
		if on, ok := states[h.ID()]; ok && !on {
			continue
		}
		enabled = append(enabled, h)
	}
	return enabled, nil
}

// Catalog renders the handler list for the classification prompt.
func Catalog(handlers []Handler, locale string) string {
	var b strings.Builder
	for _, h := range handlers {
		info := h.Info()
		fmt.Fprintf(&b, "- %s (%s %s): %s\n", info.ID, info.Icon, info.Name, info.Description)
		if d := strings.TrimSpace(h.Describe(locale)); d != "" {
			b.WriteString("  ")
			b.WriteString(strings.ReplaceAll(d, "\n", "\n  "))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
