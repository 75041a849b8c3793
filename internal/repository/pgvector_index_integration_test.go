//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newPostgresStore(t *testing.T) (*JokeRepository, *PGVectorIndex) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("jokes"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	db, err := InitDB(&config.DatabaseConfig{
		Driver:                 "postgres",
		DSN:                    dsn,
		InstallSearchFunctions: true,
	})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	return NewJokeRepository(db), NewPGVectorIndex(db)
}

func TestPGVectorIndex_MatchFunctions(t *testing.T) {
	repo, index := newPostgresStore(t)
	ctx := context.Background()

	near := &domain.JokeRecord{SourceID: "vid", SearchableText: "near"}
	near.SetContentEmbedding([]float32{1, 0, 0})
	domain.Enrichment{BridgeContent: "near bridge", BridgeEmbedding: []float32{1, 0, 0}}.ApplyTo(near)

	far := &domain.JokeRecord{SourceID: "vid", SearchableText: "far"}
	far.SetContentEmbedding([]float32{0, 1, 0})
	domain.Enrichment{BridgeContent: "far bridge", BridgeEmbedding: []float32{0.2, 1, 0}}.ApplyTo(far)

	unindexed := &domain.JokeRecord{SourceID: "vid", SearchableText: "no bridge vector"}
	unindexed.SetContentEmbedding([]float32{0.9, 0.1, 0})
	domain.Enrichment{BridgeContent: "bridge only"}.ApplyTo(unindexed)

	if err := repo.CreateBatch(ctx, []*domain.JokeRecord{near, far, unindexed}); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	bridges, err := index.MatchBridges(ctx, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("MatchBridges() error = %v", err)
	}
	if len(bridges) != 2 {
		t.Fatalf("MatchBridges() returned %d rows, want 2 (rows without bridge vectors excluded)", len(bridges))
	}
	if bridges[0].ID != near.ID || bridges[0].Similarity < bridges[1].Similarity {
		t.Errorf("MatchBridges() order = %+v", bridges)
	}
	if bridges[0].BridgeContent != "near bridge" {
		t.Errorf("BridgeContent = %q", bridges[0].BridgeContent)
	}

	content, err := index.MatchContent(ctx, []float32{1, 0, 0}, 0.5, 5)
	if err != nil {
		t.Fatalf("MatchContent() error = %v", err)
	}
	for _, m := range content {
		if m.Similarity <= 0.5 {
			t.Errorf("MatchContent() returned similarity %v at or below threshold", m.Similarity)
		}
		if m.ID == far.ID {
			t.Error("MatchContent() should drop the orthogonal joke")
		}
	}
	if len(content) != 2 {
		t.Errorf("MatchContent() returned %d rows, want 2", len(content))
	}
}
