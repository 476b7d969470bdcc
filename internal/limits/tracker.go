// Package limits enforces ceilings on the number of entries and bytes a template load may consume.
package limits

import "sync"

// Kind identifies a tracked resource.
type Kind string

const (
	// FileCount counts files and directories.
	FileCount Kind = "file count"
	// MemoryUsage counts bytes of names and file contents.
	MemoryUsage Kind = "memory usage"
	// ContentLength is the per-file size ceiling. It is checked by the loader, not tracked here.
	ContentLength Kind = "content length"
)

// Options configures the ceilings of a Tracker. A nil ceiling imposes no constraint.
type Options struct {
	MaxCount *int64
	MaxBytes *int64
}

type budget struct {
	ceiling   int64
	remaining int64
}

// Tracker holds the remaining budget of every configured ceiling. It is safe
// for concurrent use; each decrement-and-check happens under one lock.
type Tracker struct {
	mutex   sync.Mutex
	budgets map[Kind]*budget
}

// NewTracker validates the configured ceilings and returns a tracker with full budgets.
func NewTracker(options Options) (*Tracker, error) {
	tracker := &Tracker{budgets: make(map[Kind]*budget)}
	if err := tracker.addCeiling(FileCount, options.MaxCount); err != nil {
		return nil, err
	}
	if err := tracker.addCeiling(MemoryUsage, options.MaxBytes); err != nil {
		return nil, err
	}
	return tracker, nil
}

func (tracker *Tracker) addCeiling(kind Kind, ceiling *int64) error {
	if ceiling == nil {
		return nil
	}
	if *ceiling <= 0 {
		return invalidCeilingError(kind, *ceiling)
	}
	tracker.budgets[kind] = &budget{ceiling: *ceiling, remaining: *ceiling}
	return nil
}

// TrackCount consumes count units of the file count budget.
func (tracker *Tracker) TrackCount(count int64) error {
	return tracker.track(FileCount, count)
}

// TrackBytes consumes byteCount units of the memory usage budget.
func (tracker *Tracker) TrackBytes(byteCount int64) error {
	return tracker.track(MemoryUsage, byteCount)
}

// Remaining reports the budget left for kind and whether kind has a ceiling.
// The value is negative once the ceiling has been crossed.
func (tracker *Tracker) Remaining(kind Kind) (int64, bool) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	resourceBudget, configured := tracker.budgets[kind]
	if !configured {
		return 0, false
	}
	return resourceBudget.remaining, true
}

func (tracker *Tracker) track(kind Kind, amount int64) error {
	if amount <= 0 {
		return invalidAmountError(kind, amount)
	}
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	resourceBudget, configured := tracker.budgets[kind]
	if !configured {
		return nil
	}
	resourceBudget.remaining -= amount
	if resourceBudget.remaining < 0 {
		return &ExceededError{Kind: kind, Max: resourceBudget.ceiling}
	}
	return nil
}

// Ceiling returns a pointer to value for use in Options.
func Ceiling(value int64) *int64 {
	return &value
}
