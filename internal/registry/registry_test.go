package registry

import (
	"testing"

	"studio/internal/domain"
)

func newTask(id string) *domain.GenerationTask {
	return &domain.GenerationTask{
		ID:     id,
		Prompt: "a lighthouse at dusk",
		Status: domain.TaskStatusProcessing,
	}
}

func TestAddAndListPreservesOrder(t *testing.T) {
	r := New()
	r.Add(newTask("a"))
	r.Add(newTask("b"))
	r.Add(newTask("c"))

	tasks := r.List()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i, want := range []string{"a", "b", "c"} {
		if tasks[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, tasks[i].ID)
		}
	}
}

func TestUpdateAfterDeleteIsNoop(t *testing.T) {
	r := New()
	r.Add(newTask("a"))
	if !r.Delete("a") {
		t.Fatal("delete should report success")
	}
	called := false
	if r.Update("a", func(task *domain.GenerationTask) { called = true }) {
		t.Fatal("update on deleted task should report false")
	}
	if called {
		t.Fatal("update fn must not run for a deleted task")
	}
}

func TestRebindKeepsStableID(t *testing.T) {
	r := New()
	r.Add(newTask("local-1"))
	if !r.Rebind("local-1", "job-42") {
		t.Fatal("rebind should succeed")
	}

	task, ok := r.Get("local-1")
	if !ok {
		t.Fatal("task should still be addressable by its internal id")
	}
	if task.JobID != "job-42" {
		t.Fatalf("expected job id job-42, got %q", task.JobID)
	}

	byJob, ok := r.GetByJob("job-42")
	if !ok || byJob.ID != "local-1" {
		t.Fatalf("job lookup should resolve to the internal id, got %+v ok=%v", byJob, ok)
	}
}

func TestRebindReplacesPreviousJobID(t *testing.T) {
	r := New()
	r.Add(newTask("a"))
	r.Rebind("a", "job-1")
	r.Rebind("a", "job-2")

	if _, ok := r.GetByJob("job-1"); ok {
		t.Fatal("stale job id should no longer resolve")
	}
	if task, ok := r.GetByJob("job-2"); !ok || task.ID != "a" {
		t.Fatal("new job id should resolve")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := New()
	r.Add(newTask("a"))

	task, _ := r.Get("a")
	task.Status = domain.TaskStatusDone
	task.Logs = append(task.Logs, domain.LogEntry{Line: "mutated copy"})

	stored, _ := r.Get("a")
	if stored.Status != domain.TaskStatusProcessing {
		t.Fatal("mutating a returned copy must not affect the registry")
	}
	if len(stored.Logs) != 0 {
		t.Fatal("logs on the copy must not leak back")
	}
}

func TestDeleteUnknownTask(t *testing.T) {
	r := New()
	if r.Delete("ghost") {
		t.Fatal("deleting an unknown task should report false")
	}
}
