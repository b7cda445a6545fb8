package revision

import (
	"os"
	"path/filepath"
	"testing"

	"tradedesk/api/internal/quote"
)

func testDocument(id string) *quote.Quote {
	doc := quote.New(id, quote.TypeQuotation, quote.Settings{LabourRate: 45, TaxPercent: 20})
	doc.Title = "Bathroom refit"
	return doc
}

func TestSnapshotLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	doc := testDocument("q_rev1")
	first, err := svc.CommitSnapshot(doc, "Avery", "Initial save")
	if err != nil {
		t.Fatalf("CommitSnapshot() error = %v", err)
	}
	if first.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "q_rev1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	doc.Title = "Bathroom refit and tiling"
	second, err := svc.CommitSnapshot(doc, "Avery", "Rename")
	if err != nil {
		t.Fatalf("CommitSnapshot() second error = %v", err)
	}
	if second.Hash == first.Hash {
		t.Fatal("expected a new commit for the second save")
	}

	history, err := svc.History("q_rev1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() len = %d, want 2", len(history))
	}
	if history[0].Hash != second.Hash {
		t.Fatalf("newest first: got %s, want %s", history[0].Hash, second.Hash)
	}
	if history[0].Author != "Avery" {
		t.Fatalf("author = %q", history[0].Author)
	}
}

func TestSnapshotByHashRestoresOldState(t *testing.T) {
	svc := New(t.TempDir())

	doc := testDocument("q_rev2")
	doc.Title = "Original title"
	first, err := svc.CommitSnapshot(doc, "Avery", "Initial save")
	if err != nil {
		t.Fatalf("CommitSnapshot() error = %v", err)
	}

	doc.Title = "Changed title"
	if _, err := svc.CommitSnapshot(doc, "Avery", "Rename"); err != nil {
		t.Fatalf("CommitSnapshot() second error = %v", err)
	}

	restored, err := svc.SnapshotByHash("q_rev2", first.Hash)
	if err != nil {
		t.Fatalf("SnapshotByHash() error = %v", err)
	}
	if restored.Title != "Original title" {
		t.Fatalf("restored title = %q, want %q", restored.Title, "Original title")
	}
}

func TestRepeatSaveWithoutChangesSucceeds(t *testing.T) {
	svc := New(t.TempDir())

	doc := testDocument("q_rev3")
	if _, err := svc.CommitSnapshot(doc, "Avery", "Save"); err != nil {
		t.Fatalf("CommitSnapshot() error = %v", err)
	}
	if _, err := svc.CommitSnapshot(doc, "Avery", "Save"); err != nil {
		t.Fatalf("CommitSnapshot() identical error = %v", err)
	}
}

func TestHistoryForUnknownDocumentIsEmpty(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("q_missing", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("History() len = %d, want 0", len(history))
	}
}

func TestRemoveRepo(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	doc := testDocument("q_rev4")
	if _, err := svc.CommitSnapshot(doc, "Avery", "Save"); err != nil {
		t.Fatalf("CommitSnapshot() error = %v", err)
	}
	if err := svc.RemoveRepo("q_rev4"); err != nil {
		t.Fatalf("RemoveRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "q_rev4")); !os.IsNotExist(err) {
		t.Fatalf("repo directory still present: %v", err)
	}
}
