package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onPlanCreated          []OnPlanCreated
	onPlanUpdated          []OnPlanUpdated
	onPlanDeleted          []OnPlanDeleted
	onPriceFeedAdded       []OnPriceFeedAdded
	onPriceFeedUpdated     []OnPriceFeedUpdated
	onPriceFeedDeleted     []OnPriceFeedDeleted
	onSubscriptionCreated  []OnSubscriptionCreated
	onSubscriptionDue      []OnSubscriptionDue
	onSubscriptionCharged  []OnSubscriptionCharged
	onSubscriptionCanceled []OnSubscriptionCanceled
	onTokensClaimed        []OnTokensClaimed
	onOwnershipTransferred []OnOwnershipTransferred
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPlanCreated); ok {
		r.onPlanCreated = append(r.onPlanCreated, v)
	}
	if v, ok := p.(OnPlanUpdated); ok {
		r.onPlanUpdated = append(r.onPlanUpdated, v)
	}
	if v, ok := p.(OnPlanDeleted); ok {
		r.onPlanDeleted = append(r.onPlanDeleted, v)
	}
	if v, ok := p.(OnPriceFeedAdded); ok {
		r.onPriceFeedAdded = append(r.onPriceFeedAdded, v)
	}
	if v, ok := p.(OnPriceFeedUpdated); ok {
		r.onPriceFeedUpdated = append(r.onPriceFeedUpdated, v)
	}
	if v, ok := p.(OnPriceFeedDeleted); ok {
		r.onPriceFeedDeleted = append(r.onPriceFeedDeleted, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnSubscriptionDue); ok {
		r.onSubscriptionDue = append(r.onSubscriptionDue, v)
	}
	if v, ok := p.(OnSubscriptionCharged); ok {
		r.onSubscriptionCharged = append(r.onSubscriptionCharged, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnTokensClaimed); ok {
		r.onTokensClaimed = append(r.onTokensClaimed, v)
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPlanCreated)(nil)).Elem(), "OnPlanCreated")
	checkInterface(reflect.TypeOf((*OnPlanUpdated)(nil)).Elem(), "OnPlanUpdated")
	checkInterface(reflect.TypeOf((*OnPlanDeleted)(nil)).Elem(), "OnPlanDeleted")
	checkInterface(reflect.TypeOf((*OnPriceFeedAdded)(nil)).Elem(), "OnPriceFeedAdded")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnSubscriptionDue)(nil)).Elem(), "OnSubscriptionDue")
	checkInterface(reflect.TypeOf((*OnSubscriptionCharged)(nil)).Elem(), "OnSubscriptionCharged")
	checkInterface(reflect.TypeOf((*OnTokensClaimed)(nil)).Elem(), "OnTokensClaimed")

	return interfaces
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
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanCreated emits a plan created event.
func (r *Registry) EmitPlanCreated(ctx context.Context, plan interface{}) {
	r.mu.RLock()
	plugins := r.onPlanCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanCreated(ctx, plan)
		}); err != nil {
			r.logger.Warn("plugin OnPlanCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanUpdated emits a plan updated event.
func (r *Registry) EmitPlanUpdated(ctx context.Context, oldPlan, newPlan interface{}) {
	r.mu.RLock()
	plugins := r.onPlanUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanUpdated(ctx, oldPlan, newPlan)
		}); err != nil {
			r.logger.Warn("plugin OnPlanUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanDeleted emits a plan deleted event.
func (r *Registry) EmitPlanDeleted(ctx context.Context, planID uint64) {
	r.mu.RLock()
	plugins := r.onPlanDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlanDeleted(ctx, planID)
		}); err != nil {
			r.logger.Warn("plugin OnPlanDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPriceFeedAdded emits a price feed added event.
func (r *Registry) EmitPriceFeedAdded(ctx context.Context, feed interface{}) {
	r.mu.RLock()
	plugins := r.onPriceFeedAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPriceFeedAdded(ctx, feed)
		}); err != nil {
			r.logger.Warn("plugin OnPriceFeedAdded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPriceFeedUpdated emits a price feed updated event.
func (r *Registry) EmitPriceFeedUpdated(ctx context.Context, oldFeed, newFeed interface{}) {
	r.mu.RLock()
	plugins := r.onPriceFeedUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPriceFeedUpdated(ctx, oldFeed, newFeed)
		}); err != nil {
			r.logger.Warn("plugin OnPriceFeedUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPriceFeedDeleted emits a price feed deleted event.
func (r *Registry) EmitPriceFeedDeleted(ctx context.Context, token string) {
	r.mu.RLock()
	plugins := r.onPriceFeedDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPriceFeedDeleted(ctx, token)
		}); err != nil {
			r.logger.Warn("plugin OnPriceFeedDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionDue emits a subscription due event.
func (r *Registry) EmitSubscriptionDue(ctx context.Context, subID uint64, at time.Time) {
	r.mu.RLock()
	plugins := r.onSubscriptionDue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionDue(ctx, subID, at)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionDue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCharged emits a subscription charged event.
func (r *Registry) EmitSubscriptionCharged(ctx context.Context, charge interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCharged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCharged(ctx, charge)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCharged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCanceled(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokensClaimed emits a tokens claimed event.
func (r *Registry) EmitTokensClaimed(ctx context.Context, claim interface{}) {
	r.mu.RLock()
	plugins := r.onTokensClaimed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTokensClaimed(ctx, claim)
		}); err != nil {
			r.logger.Warn("plugin OnTokensClaimed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOwnershipTransferred emits an ownership transferred event.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, oldOwner, newOwner string) {
	r.mu.RLock()
	plugins := r.onOwnershipTransferred
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOwnershipTransferred(ctx, oldOwner, newOwner)
		}); err != nil {
			r.logger.Warn("plugin OnOwnershipTransferred failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
