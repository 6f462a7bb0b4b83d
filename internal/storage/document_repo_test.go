package storage

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DocumentRepo {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := tmpDir + "/test.db"

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewDocumentRepo(db)
}

func TestDocumentRepo_InsertAndGetByID(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	doc := &Document{
		ID:         "doc_abcd1234_20260831_120000",
		Name:       "report.md",
		FilePath:   "/tmp/staging/report.md",
		Hash:       "deadbeef",
		SizeBytes:  2048,
		ChunkCount: 7,
		UploadedAt: time.Now().UTC(),
	}
	if err := repo.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "report.md" {
		t.Errorf("Name = %q, want %q", got.Name, "report.md")
	}
	if got.Hash != "deadbeef" {
		t.Errorf("Hash = %q, want %q", got.Hash, "deadbeef")
	}
	if got.ChunkCount != 7 {
		t.Errorf("ChunkCount = %d, want 7", got.ChunkCount)
	}
}

func TestDocumentRepo_GetByIDNotFound(t *testing.T) {
	repo := newTestDB(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_GetByHash(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	older := &Document{
		ID:         "doc_1",
		Name:       "notes.md",
		FilePath:   "/tmp/notes.md",
		Hash:       "samehash",
		SizeBytes:  100,
		UploadedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	newer := &Document{
		ID:         "doc_2",
		Name:       "notes.md",
		FilePath:   "/tmp/notes.md",
		Hash:       "samehash",
		SizeBytes:  100,
		UploadedAt: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.Insert(ctx, older); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := repo.Insert(ctx, newer); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.GetByHash(ctx, "samehash")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if got.ID != "doc_2" {
		t.Errorf("GetByHash() returned %q, want newest %q", got.ID, "doc_2")
	}

	if _, err := repo.GetByHash(ctx, "otherhash"); err != ErrNotFound {
		t.Errorf("GetByHash() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_ListAll(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	docs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("ListAll() on empty table returned %d docs", len(docs))
	}

	for i, id := range []string{"doc_a", "doc_b", "doc_c"} {
		doc := &Document{
			ID:         id,
			Name:       id + ".md",
			FilePath:   "/tmp/" + id,
			Hash:       id,
			UploadedAt: time.Date(2026, 8, 29+i, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.Insert(ctx, doc); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	docs, err = repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("ListAll() returned %d docs, want 3", len(docs))
	}
	if docs[0].ID != "doc_c" {
		t.Errorf("ListAll() first = %q, want newest %q", docs[0].ID, "doc_c")
	}
}
