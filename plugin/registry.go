package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/claim"
	"github.com/xraph/vesting/employee"
)

// DefaultHookTimeout bounds every hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onVestingAccountCreated  []OnVestingAccountCreated
	onEmployeeVestingCreated []OnEmployeeVestingCreated
	onTreasuryFunded         []OnTreasuryFunded
	onClaimSettled           []OnClaimSettled
	onClaimRejected          []OnClaimRejected
	onClaimReverted          []OnClaimReverted
	onClaimRecovered         []OnClaimRecovered
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
	if v, ok := p.(OnVestingAccountCreated); ok {
		r.onVestingAccountCreated = append(r.onVestingAccountCreated, v)
	}
	if v, ok := p.(OnEmployeeVestingCreated); ok {
		r.onEmployeeVestingCreated = append(r.onEmployeeVestingCreated, v)
	}
	if v, ok := p.(OnTreasuryFunded); ok {
		r.onTreasuryFunded = append(r.onTreasuryFunded, v)
	}
	if v, ok := p.(OnClaimSettled); ok {
		r.onClaimSettled = append(r.onClaimSettled, v)
	}
	if v, ok := p.(OnClaimRejected); ok {
		r.onClaimRejected = append(r.onClaimRejected, v)
	}
	if v, ok := p.(OnClaimReverted); ok {
		r.onClaimReverted = append(r.onClaimReverted, v)
	}
	if v, ok := p.(OnClaimRecovered); ok {
		r.onClaimRecovered = append(r.onClaimRecovered, v)
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

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnVestingAccountCreated)(nil)).Elem(), "OnVestingAccountCreated")
	checkInterface(reflect.TypeOf((*OnEmployeeVestingCreated)(nil)).Elem(), "OnEmployeeVestingCreated")
	checkInterface(reflect.TypeOf((*OnTreasuryFunded)(nil)).Elem(), "OnTreasuryFunded")
	checkInterface(reflect.TypeOf((*OnClaimSettled)(nil)).Elem(), "OnClaimSettled")
	checkInterface(reflect.TypeOf((*OnClaimRejected)(nil)).Elem(), "OnClaimRejected")
	checkInterface(reflect.TypeOf((*OnClaimReverted)(nil)).Elem(), "OnClaimReverted")
	checkInterface(reflect.TypeOf((*OnClaimRecovered)(nil)).Elem(), "OnClaimRecovered")

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
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, engine)
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

// EmitVestingAccountCreated emits a vesting account created event.
func (r *Registry) EmitVestingAccountCreated(ctx context.Context, acct *account.VestingAccount) {
	r.mu.RLock()
	plugins := r.onVestingAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnVestingAccountCreated", func() error {
			return p.OnVestingAccountCreated(ctx, acct)
		})
	}
}

// EmitEmployeeVestingCreated emits an employee grant created event.
func (r *Registry) EmitEmployeeVestingCreated(ctx context.Context, emp *employee.Account) {
	r.mu.RLock()
	plugins := r.onEmployeeVestingCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnEmployeeVestingCreated", func() error {
			return p.OnEmployeeVestingCreated(ctx, emp)
		})
	}
}

// EmitTreasuryFunded emits a treasury funded event.
func (r *Registry) EmitTreasuryFunded(ctx context.Context, acct *account.VestingAccount, funder address.Address, amount int64) {
	r.mu.RLock()
	plugins := r.onTreasuryFunded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnTreasuryFunded", func() error {
			return p.OnTreasuryFunded(ctx, acct, funder, amount)
		})
	}
}

// EmitClaimSettled emits a claim settled event.
func (r *Registry) EmitClaimSettled(ctx context.Context, c *claim.Claim, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onClaimSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClaimSettled", func() error {
			return p.OnClaimSettled(ctx, c, elapsed)
		})
	}
}

// EmitClaimRejected emits a claim rejected event.
func (r *Registry) EmitClaimRejected(ctx context.Context, employeeAccount, requester address.Address, cause error) {
	r.mu.RLock()
	plugins := r.onClaimRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClaimRejected", func() error {
			return p.OnClaimRejected(ctx, employeeAccount, requester, cause)
		})
	}
}

// EmitClaimReverted emits a claim reverted event.
func (r *Registry) EmitClaimReverted(ctx context.Context, c *claim.Claim, cause error) {
	r.mu.RLock()
	plugins := r.onClaimReverted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClaimReverted", func() error {
			return p.OnClaimReverted(ctx, c, cause)
		})
	}
}

// EmitClaimRecovered emits a claim recovered event.
func (r *Registry) EmitClaimRecovered(ctx context.Context, c *claim.Claim) {
	r.mu.RLock()
	plugins := r.onClaimRecovered
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnClaimRecovered", func() error {
			return p.OnClaimRecovered(ctx, c)
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
// Plugins should never block the claim pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
