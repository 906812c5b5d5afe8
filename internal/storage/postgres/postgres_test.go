package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/google/uuid"
)

func TestPostgresBackend(t *testing.T) {
	// Only run this test if DOGBOOK_TEST_PG_DSN is set
	dsn := os.Getenv("DOGBOOK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: DOGBOOK_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	now := time.Now().UTC()
	runID := uuid.NewString()

	rec := &storage.QueryRecord{
		ID:        uuid.NewString(),
		RunID:     runID,
		Region:    "latam",
		Category:  "politics",
		Query:     "eleições Brasil",
		Outcome:   storage.OutcomeTopic,
		Slug:      "lula-reeleicao",
		Source:    "g1.globo.com",
		Duration:  1200 * time.Millisecond,
		CreatedAt: now,
	}
	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{RunID: runID})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.Query != rec.Query {
		t.Errorf("Expected Query %s, got %s", rec.Query, got.Query)
	}
	if got.Slug != rec.Slug {
		t.Errorf("Expected Slug %s, got %s", rec.Slug, got.Slug)
	}
	if got.Duration != rec.Duration {
		t.Errorf("Expected Duration %v, got %v", rec.Duration, got.Duration)
	}
	if got.CreatedAt.Unix() != rec.CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", rec.CreatedAt, got.CreatedAt)
	}

	results, err = b.Query(ctx, storage.Filter{RunID: runID, Outcome: storage.OutcomeError})
	if err != nil {
		t.Fatalf("Failed to query by outcome: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected 0 results, got %d", len(results))
	}
}
