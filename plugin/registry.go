package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultHookTimeout bounds a single hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages registered plugins and dispatches hooks to the ones that
// implement them. Interface checks happen once, at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit            []OnInit
	onShutdown        []OnShutdown
	onPointsLoaded    []OnPointsLoaded
	onPointsAdded     []OnPointsAdded
	onPointsSpent     []OnPointsSpent
	onDailyClaimed    []OnDailyClaimed
	onClaimRejected   []OnClaimRejected
	onOperationFailed []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnPointsLoaded); ok {
		r.onPointsLoaded = append(r.onPointsLoaded, v)
		hooks = append(hooks, "OnPointsLoaded")
	}
	if v, ok := p.(OnPointsAdded); ok {
		r.onPointsAdded = append(r.onPointsAdded, v)
		hooks = append(hooks, "OnPointsAdded")
	}
	if v, ok := p.(OnPointsSpent); ok {
		r.onPointsSpent = append(r.onPointsSpent, v)
		hooks = append(hooks, "OnPointsSpent")
	}
	if v, ok := p.(OnDailyClaimed); ok {
		r.onDailyClaimed = append(r.onDailyClaimed, v)
		hooks = append(hooks, "OnDailyClaimed")
	}
	if v, ok := p.(OnClaimRejected); ok {
		r.onClaimRejected = append(r.onClaimRejected, v)
		hooks = append(hooks, "OnClaimRejected")
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
		hooks = append(hooks, "OnOperationFailed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitPointsLoaded emits a points loaded event.
func (r *Registry) EmitPointsLoaded(ctx context.Context, evt *Event) {
	r.mu.RLock()
	plugins := r.onPointsLoaded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPointsLoaded", func() error {
			return p.OnPointsLoaded(ctx, evt)
		})
	}
}

// EmitPointsAdded emits a points added event.
func (r *Registry) EmitPointsAdded(ctx context.Context, evt *Event) {
	r.mu.RLock()
	plugins := r.onPointsAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPointsAdded", func() error {
			return p.OnPointsAdded(ctx, evt)
		})
	}
}

// EmitPointsSpent emits a points spent event.
func (r *Registry) EmitPointsSpent(ctx context.Context, evt *Event) {
	r.mu.RLock()
	plugins := r.onPointsSpent
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnPointsSpent", func() error {
			return p.OnPointsSpent(ctx, evt)
		})
	}
}

// EmitDailyClaimed emits a daily claim event.
func (r *Registry) EmitDailyClaimed(ctx context.Context, evt *Event) {
	r.mu.RLock()
	plugins := r.onDailyClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnDailyClaimed", func() error {
			return p.OnDailyClaimed(ctx, evt)
		})
	}
}

// EmitClaimRejected emits a claim rejected event.
func (r *Registry) EmitClaimRejected(ctx context.Context, userID string) {
	r.mu.RLock()
	plugins := r.onClaimRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClaimRejected", func() error {
			return p.OnClaimRejected(ctx, userID)
		})
	}
}

// EmitOperationFailed emits an operation failure event.
func (r *Registry) EmitOperationFailed(ctx context.Context, evt *Event, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnOperationFailed", func() error {
			return p.OnOperationFailed(ctx, evt, opErr)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never stall a ledger operation.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
