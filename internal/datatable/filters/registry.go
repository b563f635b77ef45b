// Package filters holds the authoritative set of active column filters for one
// table, independent of whichever widget last edited them.
package filters

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-datatable/internal/models"
)

// DefaultDebounce is the coalescing window used by DebouncedAdd.
const DefaultDebounce = 300 * time.Millisecond

// Listener receives the filter set after every effective mutation.
type Listener func([]models.ActiveFilter)

// Registry is an ordered mapping of column id to active filter.
type Registry struct {
	mu        sync.Mutex
	order     []string
	byID      map[string]models.ActiveFilter
	pending   map[string]*pendingAdd
	queued    []string
	debounce  time.Duration
	listeners []Listener
	closed    bool
	logger    *zap.Logger
}

type pendingAdd struct {
	filter models.ActiveFilter
	timer  *time.Timer
}

// Option configures a Registry.
type Option func(*Registry)

// WithDebounce overrides the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byID:     make(map[string]models.ActiveFilter),
		pending:  make(map[string]*pendingAdd),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers a listener. Listeners run synchronously after the mutation,
// outside the registry lock, in mutation order.
func (r *Registry) OnChange(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Get returns the filter for a column.
func (r *Registry) Get(columnID string) (models.ActiveFilter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[columnID]
	return f, ok
}

// List returns the filters in insertion order.
func (r *Registry) List() []models.ActiveFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Len returns the number of active filters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Pending reports whether a debounced write is waiting for the column.
func (r *Registry) Pending(columnID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[columnID]
	return ok
}

// Add upserts a filter immediately. An empty value removes the column.
// It returns false when the registry was left unchanged.
func (r *Registry) Add(f models.ActiveFilter) bool {
	r.mu.Lock()
	r.cancelPendingLocked(f.ID)
	changed := r.upsertLocked(f)
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	emit(listeners, snapshot)
	return changed
}

// DebouncedAdd schedules an upsert. Calls for the same column within the
// debounce window coalesce: the last value wins and one notification fires.
func (r *Registry) DebouncedAdd(f models.ActiveFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if p, ok := r.pending[f.ID]; ok {
		p.filter = f
		p.timer.Reset(r.debounce)
		return
	}
	p := &pendingAdd{filter: f}
	id := f.ID
	p.timer = time.AfterFunc(r.debounce, func() { r.fire(id, p) })
	r.pending[id] = p
	r.queued = append(r.queued, id)
}

func (r *Registry) fire(id string, p *pendingAdd) {
	r.mu.Lock()
	current, ok := r.pending[id]
	if !ok || current != p {
		r.mu.Unlock()
		return
	}
	r.dropPendingLocked(id)
	changed := r.upsertLocked(p.filter)
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	if changed {
		r.logger.Debug("debounced filter applied", zap.String("column", id))
	}
	emit(listeners, snapshot)
}

// Flush applies every pending debounced write now.
func (r *Registry) Flush() {
	r.mu.Lock()
	changed := false
	for _, id := range r.queued {
		p := r.pending[id]
		p.timer.Stop()
		delete(r.pending, id)
		if r.upsertLocked(p.filter) {
			changed = true
		}
	}
	r.queued = nil
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	emit(listeners, snapshot)
}

// Remove deletes a column's filter. Removing an absent column is a no-op.
func (r *Registry) Remove(columnID string) bool {
	r.mu.Lock()
	r.cancelPendingLocked(columnID)
	changed := r.removeLocked(columnID)
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	emit(listeners, snapshot)
	return changed
}

// Clear empties the registry and drops pending writes.
func (r *Registry) Clear() bool {
	r.mu.Lock()
	for id := range r.pending {
		r.cancelPendingLocked(id)
	}
	changed := len(r.order) > 0
	r.order = nil
	r.byID = make(map[string]models.ActiveFilter)
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	emit(listeners, snapshot)
	return changed
}

// Replace swaps the whole set, e.g. when a view is selected or the URL is
// decoded. Duplicate ids resolve to the last occurrence.
func (r *Registry) Replace(list []models.ActiveFilter) bool {
	r.mu.Lock()
	for id := range r.pending {
		r.cancelPendingLocked(id)
	}
	before := r.snapshotLocked()
	r.order = nil
	r.byID = make(map[string]models.ActiveFilter)
	for _, f := range list {
		r.upsertLocked(f)
	}
	changed := !models.SameFilters(before, r.snapshotLocked())
	snapshot, listeners := r.notifyLocked(changed)
	r.mu.Unlock()
	emit(listeners, snapshot)
	return changed
}

// Close stops pending timers; later debounced writes are ignored.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.pending {
		r.cancelPendingLocked(id)
	}
	r.closed = true
}

func (r *Registry) upsertLocked(f models.ActiveFilter) bool {
	if f.ID == "" {
		return false
	}
	if f.Empty() {
		return r.removeLocked(f.ID)
	}
	if existing, ok := r.byID[f.ID]; ok {
		if existing.Equal(f) {
			return false
		}
		r.byID[f.ID] = f
		return true
	}
	r.byID[f.ID] = f
	r.order = append(r.order, f.ID)
	return true
}

func (r *Registry) removeLocked(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) cancelPendingLocked(id string) {
	if p, ok := r.pending[id]; ok {
		p.timer.Stop()
		r.dropPendingLocked(id)
	}
}

// dropPendingLocked forgets a pending write; queued keeps arrival order.
func (r *Registry) dropPendingLocked(id string) {
	delete(r.pending, id)
	for i, queued := range r.queued {
		if queued == id {
			r.queued = append(r.queued[:i], r.queued[i+1:]...)
			return
		}
	}
}

func (r *Registry) snapshotLocked() []models.ActiveFilter {
	out := make([]models.ActiveFilter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) notifyLocked(changed bool) ([]models.ActiveFilter, []Listener) {
	if !changed || len(r.listeners) == 0 {
		return nil, nil
	}
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	return r.snapshotLocked(), listeners
}

func emit(listeners []Listener, snapshot []models.ActiveFilter) {
	for _, l := range listeners {
		l(snapshot)
	}
}
