package pipeline

import (
	"strings"
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h := ContentHashHex(nil); h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("doc.w")
	if job.Status != StatusQueued {
		t.Fatalf("expected a queued job, got %q", job.Status)
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusLoading, "loading"},
		{StatusTangling, "tangling"},
		{StatusWeaving, "weaving"},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status || job.Phase != tr.phase {
			t.Errorf("expected %q/%q, got %q/%q", tr.status, tr.phase, job.Status, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}

	select {
	case <-job.Done():
		t.Fatal("expected job to be running")
	default:
	}
	job.finish(StatusCompleted, "done")
	select {
	case <-job.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestJob_Summary(t *testing.T) {
	job := NewJob("doc.w")
	job.SetLoaded(nil, 120, 0, "abc")
	job.AddOutputs([]string{"out/a.c"}, nil)
	job.AddOutputs(nil, []string{"out/b.c"})
	job.SetDocument("out/doc.html")
	job.AddError("out/c.c: attempt to tangle an undefined chunk 'x'")

	snap := job.Snapshot()
	if snap.ContentHash != "abc" || snap.Summary.Lines != 120 {
		t.Errorf("unexpected load summary %+v", snap)
	}
	if len(snap.Summary.Written) != 1 || len(snap.Summary.Unchanged) != 1 {
		t.Errorf("unexpected outputs %+v", snap.Summary)
	}
	if snap.Summary.Document != "out/doc.html" {
		t.Errorf("unexpected document %q", snap.Summary.Document)
	}
	if len(snap.Summary.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(snap.Summary.Errors))
	}

	// Snapshots are copies.
	snap.Summary.Written[0] = "changed"
	if job.Snapshot().Summary.Written[0] != "out/a.c" {
		t.Error("expected snapshot to be independent of the job")
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	snap := NewJob("doc.w").Snapshot()
	if snap.Summary.Errors == nil || snap.Summary.Written == nil || snap.Summary.Unchanged == nil {
		t.Error("expected non-nil slices in snapshot")
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore()
	job := NewJob("a.w")
	store.Put(job)

	if got := store.Get(job.ID); got != job {
		t.Fatal("expected to get job back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_LatestAndList(t *testing.T) {
	store := NewJobStore()
	first := NewJob("a.w")
	other := NewJob("b.w")
	second := NewJob("a.w")
	for _, j := range []*Job{second, other, first} {
		store.Put(j)
	}

	if got := store.Latest("a.w"); got != second {
		t.Errorf("expected the newest job for a.w, got %v", got.ID)
	}
	if store.Latest("c.w") != nil {
		t.Error("expected nil for an unknown web")
	}

	list := store.List()
	if len(list) != 3 || list[0] != first || list[2] != second {
		t.Errorf("expected jobs oldest first")
	}
}

func TestNewJobID(t *testing.T) {
	prev := ""
	for i := 0; i < 1000; i++ {
		id := newJobID()
		if len(id) != 26 {
			t.Fatalf("expected 26 characters, got %q", id)
		}
		if strings.Trim(id, crockford) != "" {
			t.Fatalf("unexpected character in %q", id)
		}
		if id <= prev {
			t.Fatalf("expected increasing IDs, got %q after %q", id, prev)
		}
		prev = id
	}
}

func TestEncodeID(t *testing.T) {
	var zero, ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeID(zero); got != strings.Repeat("0", 26) {
		t.Errorf("unexpected zero encoding %q", got)
	}
	if got := encodeID(ones); got != "7"+strings.Repeat("Z", 25) {
		t.Errorf("unexpected max encoding %q", got)
	}
}
