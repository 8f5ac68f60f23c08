package task

import "testing"

func TestNew(t *testing.T) {
	tk := New("")
	if tk.ID == "" {
		t.Error("expected generated task id")
	}
	if tk.ContextID == "" {
		t.Error("expected generated context id")
	}
	if tk.State != Submitted {
		t.Errorf("expected submitted state, got %s", tk.State)
	}

	tk2 := New("ctx-1")
	if tk2.ContextID != "ctx-1" {
		t.Errorf("expected provided context id, got %s", tk2.ContextID)
	}
	if tk2.ID == tk.ID {
		t.Error("task ids must be unique")
	}
}

func TestLifecycle_Complete(t *testing.T) {
	tk := New("")
	tk.Start("working")
	if tk.State != Working {
		t.Fatalf("expected working, got %s", tk.State)
	}

	tk.Complete([]string{"MED-1", "MED-2"})
	if tk.State != Completed {
		t.Fatalf("expected completed, got %s", tk.State)
	}
	if len(tk.DocIDs) != 2 {
		t.Errorf("expected 2 doc ids, got %v", tk.DocIDs)
	}
	if tk.StatusMessage != "" {
		t.Errorf("completed task should have no status message, got %q", tk.StatusMessage)
	}
}

func TestLifecycle_FailDiscardsDocIDs(t *testing.T) {
	tk := New("")
	tk.Start("working")
	tk.DocIDs = []string{"MED-1"}

	tk.Fail("model produced an invalid ranking")
	if tk.State != Failed {
		t.Fatalf("expected failed, got %s", tk.State)
	}
	if tk.DocIDs != nil {
		t.Errorf("failed task must not carry doc ids, got %v", tk.DocIDs)
	}
	if tk.StatusMessage == "" {
		t.Error("expected status message on failed task")
	}
}

func TestCancel(t *testing.T) {
	tk := New("")
	tk.Start("working")
	if !tk.Cancel() {
		t.Fatal("expected cancel of working task to succeed")
	}
	if tk.State != Canceled {
		t.Fatalf("expected canceled, got %s", tk.State)
	}

	if tk.Cancel() {
		t.Error("canceling a terminal task must fail")
	}

	done := New("")
	done.Complete(nil)
	if done.Cancel() {
		t.Error("canceling a completed task must fail")
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{Completed, Failed, Canceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{Submitted, Working} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
