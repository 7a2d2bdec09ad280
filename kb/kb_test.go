package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/rtsched/model"
)

type countRecorder struct {
	mu   sync.Mutex
	last int
}

func (c *countRecorder) SetTaskSetCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = n
}

func demoSet(name string) model.TaskSet {
	return model.TaskSet{
		Name: name,
		Tasks: []model.TaskType{
			{ID: "P1", Period: 4, ExecutionBudget: 1, RelativeDeadline: 4},
			{ID: "P2", Period: 5, ExecutionBudget: 2, RelativeDeadline: 5},
		},
	}
}

func TestAddAndGetTaskSet(t *testing.T) {
	store := NewKnowledgeBase(nil)
	if err := store.AddTaskSet(demoSet("a")); err != nil {
		t.Fatalf("AddTaskSet error: %v", err)
	}
	got, err := store.GetTaskSet("a")
	if err != nil {
		t.Fatalf("GetTaskSet error: %v", err)
	}
	if got.Name != "a" || len(got.Tasks) != 2 {
		t.Fatalf("GetTaskSet returned %#v, want set a with 2 tasks", got)
	}
}

func TestAddTaskSetDuplicate(t *testing.T) {
	store := NewKnowledgeBase(nil)
	if err := store.AddTaskSet(demoSet("a")); err != nil {
		t.Fatalf("first AddTaskSet error: %v", err)
	}
	if err := store.AddTaskSet(demoSet("a")); !errors.Is(err, ErrTaskSetExists) {
		t.Fatalf("duplicate AddTaskSet error = %v, want ErrTaskSetExists", err)
	}
	replacement := demoSet("a")
	replacement.Tasks = replacement.Tasks[:1]
	if err := store.PutTaskSet(replacement); err != nil {
		t.Fatalf("PutTaskSet error: %v", err)
	}
	got, _ := store.GetTaskSet("a")
	if len(got.Tasks) != 1 {
		t.Fatalf("after PutTaskSet got %d tasks, want 1", len(got.Tasks))
	}
}

func TestTaskSetValidationAndNotFound(t *testing.T) {
	store := NewKnowledgeBase(nil)
	if err := store.AddTaskSet(model.TaskSet{}); !errors.Is(err, ErrTaskSetInvalid) {
		t.Fatalf("unnamed AddTaskSet error = %v, want ErrTaskSetInvalid", err)
	}
	if _, err := store.GetTaskSet("missing"); !errors.Is(err, ErrTaskSetNotFound) {
		t.Fatalf("GetTaskSet(missing) error = %v, want ErrTaskSetNotFound", err)
	}
	if err := store.DeleteTaskSet("missing"); !errors.Is(err, ErrTaskSetNotFound) {
		t.Fatalf("DeleteTaskSet(missing) error = %v, want ErrTaskSetNotFound", err)
	}
}

func TestStoredTaskSetsAreCopies(t *testing.T) {
	store := NewKnowledgeBase(nil)
	in := demoSet("a")
	if err := store.AddTaskSet(in); err != nil {
		t.Fatalf("AddTaskSet error: %v", err)
	}
	in.Tasks[0].Period = 99

	got, _ := store.GetTaskSet("a")
	if got.Tasks[0].Period != 4 {
		t.Fatalf("store shares caller slice: period = %d, want 4", got.Tasks[0].Period)
	}
	got.Tasks[0].Period = 77
	again, _ := store.GetTaskSet("a")
	if again.Tasks[0].Period != 4 {
		t.Fatalf("GetTaskSet returned shared slice: period = %d, want 4", again.Tasks[0].Period)
	}
}

func TestListTaskSetsSortedAndCounted(t *testing.T) {
	rec := &countRecorder{}
	store := NewKnowledgeBase(rec)
	for _, name := range []string{"c", "a", "b"} {
		if err := store.AddTaskSet(demoSet(name)); err != nil {
			t.Fatalf("AddTaskSet(%s) error: %v", name, err)
		}
	}
	list := store.ListTaskSets()
	if len(list) != 3 || list[0].Name != "a" || list[1].Name != "b" || list[2].Name != "c" {
		t.Fatalf("ListTaskSets = %v, want a, b, c", list)
	}
	if rec.last != 3 {
		t.Fatalf("recorded count = %d, want 3", rec.last)
	}
	if err := store.DeleteTaskSet("b"); err != nil {
		t.Fatalf("DeleteTaskSet error: %v", err)
	}
	if rec.last != 2 {
		t.Fatalf("recorded count after delete = %d, want 2", rec.last)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := NewKnowledgeBase(nil)
	var events []Event
	unsubscribe := store.Subscribe(func(ev Event) { events = append(events, ev) })

	if err := store.AddTaskSet(demoSet("a")); err != nil {
		t.Fatalf("AddTaskSet error: %v", err)
	}
	if err := store.DeleteTaskSet("a"); err != nil {
		t.Fatalf("DeleteTaskSet error: %v", err)
	}
	unsubscribe()
	if err := store.AddTaskSet(demoSet("b")); err != nil {
		t.Fatalf("AddTaskSet error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventTaskSetStored || events[0].TaskSet.Name != "a" {
		t.Fatalf("event[0] = %+v, want stored a", events[0])
	}
	if events[1].Type != EventTaskSetDeleted || events[1].Type.String() != "deleted" {
		t.Fatalf("event[1] = %+v, want deleted", events[1])
	}
}

func TestSubscriberMayCallStore(t *testing.T) {
	store := NewKnowledgeBase(nil)
	var seen int
	store.Subscribe(func(ev Event) {
		seen = len(store.ListTaskSets())
	})
	if err := store.AddTaskSet(demoSet("a")); err != nil {
		t.Fatalf("AddTaskSet error: %v", err)
	}
	if seen != 1 {
		t.Fatalf("subscriber saw %d task sets, want 1", seen)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewKnowledgeBase(&countRecorder{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.PutTaskSet(demoSet(fmt.Sprintf("set-%d", i%3)))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.GetTaskSet("set-0")
			_ = store.ListTaskSets()
		}()
	}
	wg.Wait()
}
