package envutil

// This file records environment variable reads. Recording is off by default;
// when enabled, every lookup made through the Reader constructors produces a
// ValueReadEvent that can be collected later or streamed to observers. The
// waitfor CLI uses this behind --show-env to report which variables
// influenced a run.

import (
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Source indicates where an environment variable value originated from.
type Source string

const (
	// None indicates the variable was not set anywhere.
	None Source = "none"

	// Environment indicates the value came from the process environment.
	Environment Source = "environment"

	// Context indicates the value came from a context override.
	Context Source = "context"
)

var (
	// recording gates whether reads are appended to the event buffer.
	recording *atomic.Bool

	// wantStacks gates stack capture per event. Stacks are useful when
	// hunting down where a read happens, but they are expensive.
	wantStacks *atomic.Bool

	// hasObservers short-circuits notification when nobody is listening.
	hasObservers *atomic.Bool

	// dedupKeys records only the first read of each key when set.
	dedupKeys *atomic.Bool

	// seenKeys holds the keys already recorded while dedupKeys is on.
	seenKeys      map[string]struct{}
	seenKeysMutex sync.RWMutex

	eventMutex sync.Mutex
	events     []ValueReadEvent

	observerMutex  sync.RWMutex
	observers      []observerEntry
	nextObserverID atomic.Int64
)

func init() {
	recording = atomic.NewBool(false)
	wantStacks = atomic.NewBool(false)
	hasObservers = atomic.NewBool(false)
	dedupKeys = atomic.NewBool(false)
	seenKeys = make(map[string]struct{})
}

// Observer receives a ValueReadEvent for every read while any observer is
// registered. Observers run synchronously on the reading goroutine, so they
// must return quickly.
type Observer func(ValueReadEvent)

// observerEntry pairs an Observer with a unique ID. Unregistration goes by ID
// because function values are not comparable.
type observerEntry struct {
	id int64
	fn Observer
}

// ValueReadEvent describes a single environment variable read.
type ValueReadEvent struct {
	// Time is when the read happened.
	Time time.Time `json:"time"`

	// Key is the environment variable name.
	Key string `json:"key"`

	// Value is the raw string value. Empty when the variable was unset.
	Value string `json:"value,omitempty"`

	// IsSet reports whether the variable was found at all.
	IsSet bool `json:"is_set"`

	// Source reports where the value came from.
	Source Source `json:"source"`

	// Stack holds the call stack of the read, if stack capture is enabled.
	Stack []byte `json:"stack,omitempty"`
}

// EnableRecording turns the event buffer on or off. While off, reads still
// reach registered observers but nothing is buffered.
func EnableRecording(enable bool) {
	recording.Store(enable)
}

// EnableStackTraces controls whether each recorded event carries the call
// stack of the read.
func EnableStackTraces(enable bool) {
	wantStacks.Store(enable)
}

// EnableDedupKeys controls whether repeated reads of the same key are
// dropped from the buffer. Enabling it resets the set of seen keys.
// Observers are still notified for every read.
func EnableDedupKeys(enable bool) {
	dedupKeys.Store(enable)

	if enable {
		seenKeysMutex.Lock()

		seenKeys = make(map[string]struct{})

		seenKeysMutex.Unlock()
	}
}

// IsRecording reports whether the event buffer is currently on.
func IsRecording() bool {
	return recording.Load()
}

// CountRecordedEvents returns the number of buffered events.
func CountRecordedEvents() int {
	eventMutex.Lock()
	defer eventMutex.Unlock()

	return len(events)
}

// CollectRecordingEvents returns a copy of the buffered events, optionally
// clearing the buffer.
func CollectRecordingEvents(shouldClear bool) []ValueReadEvent {
	eventMutex.Lock()
	defer eventMutex.Unlock()

	out := make([]ValueReadEvent, len(events))
	copy(out, events)

	if shouldClear {
		events = nil
	}

	return out
}

// RegisterObserver adds a callback invoked for every environment variable
// read. It returns an unregister function that is safe to call more than
// once.
func RegisterObserver(obs Observer) func() {
	observerID := nextObserverID.Add(1)

	observerMutex.Lock()

	observers = append(observers, observerEntry{id: observerID, fn: obs})

	hasObservers.Store(true)

	observerMutex.Unlock()

	unregistered := false

	return func() {
		if unregistered {
			return
		}

		unregistered = true

		observerMutex.Lock()
		defer observerMutex.Unlock()

		for i, entry := range observers {
			if entry.id == observerID {
				observers = append(observers[:i], observers[i+1:]...)

				break
			}
		}

		if len(observers) == 0 {
			hasObservers.Store(false)
		}
	}
}

// recordRead is called by get for every lookup. It is a no-op unless
// recording is on or an observer is registered.
func recordRead(key string, value string, isSet bool, source Source) {
	isRecording := recording.Load()
	if !isRecording && !hasObservers.Load() {
		return
	}

	event := ValueReadEvent{
		Time:   time.Now(),
		Key:    key,
		Value:  value,
		IsSet:  isSet,
		Source: source,
	}

	if wantStacks.Load() {
		event.Stack = debug.Stack()
	}

	notifyObservers(event)

	if !isRecording || !shouldRecordKey(key) {
		return
	}

	eventMutex.Lock()

	events = append(events, event)

	eventMutex.Unlock()
}

// shouldRecordKey implements the dedup filter. The first reader of a new key
// wins; later reads of the same key are skipped while dedup is on.
func shouldRecordKey(key string) bool {
	if !dedupKeys.Load() {
		return true
	}

	seenKeysMutex.RLock()

	_, seen := seenKeys[key]

	seenKeysMutex.RUnlock()

	if seen {
		return false
	}

	seenKeysMutex.Lock()

	seenKeys[key] = struct{}{}

	seenKeysMutex.Unlock()

	return true
}

// notifyObservers fans an event out to every registered observer. The list is
// copied under the read lock so observers may register or unregister others
// while being notified.
func notifyObservers(event ValueReadEvent) {
	if !hasObservers.Load() {
		return
	}

	observerMutex.RLock()

	obs := make([]observerEntry, len(observers))
	copy(obs, observers)

	observerMutex.RUnlock()

	for _, entry := range obs {
		entry.fn(event)
	}
}
