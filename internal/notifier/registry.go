package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/stratsim/internal/backtest"
	"go.uber.org/zap"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	logger    *zap.Logger
}

// NewRegistry creates a new notifier registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Registry{
		notifiers: make(map[string]Notifier),
		logger:    l,
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers ordered by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends a summary to all registered notifiers
func (r *Registry) NotifyAll(ctx context.Context, s Summary) map[string]error {
	errors := make(map[string]error)
	for _, n := range r.GetAll() {
		if err := n.Send(ctx, s); err != nil {
			errors[n.Name()] = err
		}
	}
	return errors
}

// SaveReport notifies every channel about a finished report. Delivery
// failures are logged and never fail the simulation.
func (r *Registry) SaveReport(ctx context.Context, report *backtest.Report) error {
	for name, err := range r.NotifyAll(ctx, Summarize(report)) {
		r.logger.Warn("notification failed",
			zap.String("notifier", name),
			zap.String("run_id", report.ID),
			zap.Error(err),
		)
	}
	return nil
}
