package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/rtsched/model"
)

var (
	// ErrTaskSetExists indicates a task set with the same name is stored.
	ErrTaskSetExists = errors.New("task set already exists")
	// ErrTaskSetNotFound indicates a requested task set was not found.
	ErrTaskSetNotFound = errors.New("task set not found")
	// ErrTaskSetInvalid indicates a task set without a name.
	ErrTaskSetInvalid = errors.New("invalid task set")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventTaskSetStored EventType = iota
	EventTaskSetDeleted
)

func (t EventType) String() string {
	switch t {
	case EventTaskSetStored:
		return "stored"
	case EventTaskSetDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a task set changes.
type Event struct {
	Type    EventType
	TaskSet model.TaskSet
}

// CountRecorder receives the number of stored task sets after each change.
type CountRecorder interface {
	SetTaskSetCount(n int)
}

// KnowledgeBase is an in-memory, thread-safe store of named task sets.
// Stored and returned task sets are copies; callers never share backing
// arrays with the store.
type KnowledgeBase struct {
	mu sync.RWMutex

	taskSets map[string]model.TaskSet
	metrics  CountRecorder

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB. recorder may be nil.
func NewKnowledgeBase(recorder CountRecorder) *KnowledgeBase {
	kb := &KnowledgeBase{
		taskSets: make(map[string]model.TaskSet),
		metrics:  recorder,
		subs:     make(map[int]func(Event)),
	}
	kb.recordCount()
	return kb
}

// AddTaskSet stores ts. It returns ErrTaskSetExists if the name is taken.
func (kb *KnowledgeBase) AddTaskSet(ts model.TaskSet) error {
	return kb.store(ts, false)
}

// PutTaskSet stores ts, replacing any task set with the same name.
func (kb *KnowledgeBase) PutTaskSet(ts model.TaskSet) error {
	return kb.store(ts, true)
}

func (kb *KnowledgeBase) store(ts model.TaskSet, replace bool) error {
	if ts.Name == "" {
		return fmt.Errorf("%w: name is required", ErrTaskSetInvalid)
	}
	kb.mu.Lock()
	if _, exists := kb.taskSets[ts.Name]; exists && !replace {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskSetExists, ts.Name)
	}
	kb.taskSets[ts.Name] = ts.Clone()
	subs := kb.snapshotSubs()
	kb.recordCountLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventTaskSetStored, TaskSet: ts.Clone()})
	return nil
}

// GetTaskSet returns a copy of the named task set.
func (kb *KnowledgeBase) GetTaskSet(name string) (model.TaskSet, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	ts, ok := kb.taskSets[name]
	if !ok {
		return model.TaskSet{}, fmt.Errorf("%w: %q", ErrTaskSetNotFound, name)
	}
	return ts.Clone(), nil
}

// ListTaskSets returns copies of all task sets sorted by name.
func (kb *KnowledgeBase) ListTaskSets() []model.TaskSet {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.TaskSet, 0, len(kb.taskSets))
	for _, ts := range kb.taskSets {
		res = append(res, ts.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// DeleteTaskSet removes the named task set.
func (kb *KnowledgeBase) DeleteTaskSet(name string) error {
	kb.mu.Lock()
	ts, ok := kb.taskSets[name]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTaskSetNotFound, name)
	}
	delete(kb.taskSets, name)
	subs := kb.snapshotSubs()
	kb.recordCountLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventTaskSetDeleted, TaskSet: ts})
	return nil
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, kb.subs[id])
	}
	return subs
}

func (kb *KnowledgeBase) recordCount() {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	kb.recordCountLocked()
}

func (kb *KnowledgeBase) recordCountLocked() {
	if kb.metrics != nil {
		kb.metrics.SetTaskSetCount(len(kb.taskSets))
	}
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
