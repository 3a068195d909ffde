package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ado-pulse/internal/record"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2025, 9, 10, 14, 20, 0, 0, time.UTC)
	refreshedAt := time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC)

	store := NewStore()
	store.Replace([]record.Record{
		{
			ID:        "3002",
			Kind:      record.KindWorkItem,
			Title:     "Data validation error",
			ItemType:  "Bug",
			Tags:      record.SplitTags("hack; data"),
			CreatedAt: &created,
			Raw:       json.RawMessage(`{"id":3002}`),
		},
	}, refreshedAt)

	if err := store.SaveSnapshot(dir); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored := NewStore()
	if err := restored.LoadSnapshot(dir); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	records, gotTime := restored.Current()
	if len(records) != 1 {
		t.Fatalf("restored %d records, want 1", len(records))
	}
	got := records[0]
	if got.ID != "3002" || got.Kind != record.KindWorkItem || got.Title != "Data validation error" {
		t.Errorf("restored record = %+v", got)
	}
	if !got.Tags.Contains("hack") {
		t.Errorf("restored tags = %v, want hack token", got.Tags)
	}
	if got.CreatedAt == nil || !got.CreatedAt.Equal(created) {
		t.Errorf("restored CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if string(got.Raw) != `{"id":3002}` {
		t.Errorf("restored Raw = %s, want original bytes", got.Raw)
	}
	if !gotTime.Equal(refreshedAt) {
		t.Errorf("restored refreshedAt = %v, want %v", gotTime, refreshedAt)
	}
}

func TestLoadSnapshot_MissingFileIsNotAnError(t *testing.T) {
	store := NewStore()
	if err := store.LoadSnapshot(t.TempDir()); err != nil {
		t.Errorf("missing snapshot should load as empty, got %v", err)
	}
	if !store.IsEmpty() {
		t.Error("store should remain empty without a snapshot")
	}
}

func TestLoadSnapshot_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, snapshotFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewStore()
	if err := store.LoadSnapshot(dir); err == nil {
		t.Error("corrupt snapshot should surface an error")
	}
	if !store.IsEmpty() {
		t.Error("corrupt snapshot must not populate the store")
	}
}
