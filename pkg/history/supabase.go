package history

import (
	"context"
	"errors"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// ErrInvalidSupabaseConfig is returned when the URL or key is unusable.
var ErrInvalidSupabaseConfig = errors.New("history: supabase url and key are required")

// SupabaseConfig configures the hosted store.
type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

// SupabaseStore inserts records into a Supabase table.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

// NewSupabase creates the store. The table defaults to "conversations".
func NewSupabase(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, ErrInvalidSupabaseConfig
	}
	if cfg.Table == "" {
		cfg.Table = "conversations"
	}
	client, err := supabase.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, wrap("create client", err)
	}
	return &SupabaseStore{client: client, table: cfg.Table}, nil
}

type supabaseRow struct {
	UserInput      string  `json:"user_input"`
	AIResponse     string  `json:"ai_response"`
	ProcessingTime float64 `json:"processing_time"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// Save inserts rec. The id is left to the table default.
func (s *SupabaseStore) Save(ctx context.Context, rec Record) error {
	row := supabaseRow{
		UserInput:      rec.UserInput,
		AIResponse:     rec.AIResponse,
		ProcessingTime: rec.ProcessingTimeMs,
	}
	if !rec.CreatedAt.IsZero() {
		row.CreatedAt = rec.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00")
	}

	// The postgrest client has no context support.
	done := make(chan error, 1)
	go func() {
		_, _, err := s.client.From(s.table).Insert(row, false, "", "minimal", "").Execute()
		done <- err
	}()

	select {
	case <-ctx.Done():
		return wrap("insert conversation", ctx.Err())
	case err := <-done:
		if err != nil {
			return wrap("insert conversation", err)
		}
		return nil
	}
}

// Close is a no-op; the client holds no open connections.
func (s *SupabaseStore) Close() error {
	return nil
}

var _ Sink = (*SupabaseStore)(nil)
