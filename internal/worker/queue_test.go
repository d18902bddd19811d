package worker

import (
	"reflect"
	"testing"
)

func TestQueueDedupAndTake(t *testing.T) {
	q := NewQueue()
	if !q.Enqueue("a.png") || !q.Enqueue("b.jpg") {
		t.Fatal("first enqueue should succeed")
	}
	if q.Enqueue("a.png") {
		t.Error("duplicate path accepted")
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	if got := q.Take(); !reflect.DeepEqual(got, []string{"a.png", "b.jpg"}) {
		t.Errorf("Take() = %v", got)
	}
	if q.Len() != 0 {
		t.Error("queue not drained")
	}
	if !q.Enqueue("a.png") {
		t.Error("path should be accepted again after Take")
	}

	q.StopAccepting()
	if q.Enqueue("c.png") {
		t.Error("closed queue accepted a path")
	}
}
