package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	r := NewRecord("hello", "hi there", 1234.5)
	if r.ID == "" {
		t.Error("ID not set")
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if r.UserInput != "hello" || r.AIResponse != "hi there" || r.ProcessingTimeMs != 1234.5 {
		t.Errorf("record = %+v", r)
	}
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	if err := s.Save(context.Background(), NewRecord("a", "b", 1)); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		rec := NewRecord(text, "reply to "+text, float64(100*(i+1)))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save(%q) error = %v", text, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if recent[0].UserInput != "third" || recent[1].UserInput != "second" {
		t.Errorf("order = %q, %q", recent[0].UserInput, recent[1].UserInput)
	}
	if recent[0].AIResponse != "reply to third" || recent[0].ProcessingTimeMs != 300 {
		t.Errorf("record = %+v", recent[0])
	}
	if !recent[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at = %v", recent[0].CreatedAt)
	}
}

func TestSQLiteFillsMissingFields(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, Record{UserInput: "bare", AIResponse: "ok"}); err != nil {
		t.Fatal(err)
	}
	recent, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID == "" || recent[0].CreatedAt.IsZero() {
		t.Errorf("recent = %+v", recent)
	}
}

func TestSQLiteDuplicateID(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	rec := NewRecord("a", "b", 1)
	store.Save(context.Background(), rec)
	err = store.Save(context.Background(), rec)
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
}

func TestSupabaseRequiresConfig(t *testing.T) {
	if _, err := NewSupabase(SupabaseConfig{URL: "https://x.supabase.co"}); !errors.Is(err, ErrInvalidSupabaseConfig) {
		t.Errorf("error = %v, want ErrInvalidSupabaseConfig", err)
	}
}

func TestSupabaseSave(t *testing.T) {
	var got supabaseRow
	var path, apikey, prefer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apikey = r.Header.Get("apikey")
		prefer = r.Header.Get("Prefer")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store, err := NewSupabase(SupabaseConfig{URL: server.URL + "/", Key: "anon-key"})
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecord("What's the weather?", "Sunny!", 842)
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if path != "/rest/v1/conversations" {
		t.Errorf("path = %s", path)
	}
	if apikey != "anon-key" {
		t.Errorf("apikey = %q", apikey)
	}
	if prefer != "return=minimal" {
		t.Errorf("Prefer = %q", prefer)
	}
	if got.UserInput != "What's the weather?" || got.AIResponse != "Sunny!" || got.ProcessingTime != 842 {
		t.Errorf("row = %+v", got)
	}
	if got.CreatedAt == "" {
		t.Error("created_at missing")
	}
}

func TestSupabaseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"42P01","message":"relation \"conversations\" does not exist"}`))
	}))
	defer server.Close()

	store, _ := NewSupabase(SupabaseConfig{URL: server.URL, Key: "k"})
	err := store.Save(context.Background(), NewRecord("a", "b", 1))
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
}
