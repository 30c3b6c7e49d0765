//go:build integration

package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"netwatch/internal/models"
	"netwatch/internal/store"
)

var repo *store.Repository

func TestMain(m *testing.M) {
	dsn := os.Getenv("NETWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "SKIP: NETWATCH_TEST_DATABASE_URL not set")
		os.Exit(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := store.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "SKIP: cannot reach test database: %v\n", err)
		os.Exit(0)
	}
	schema, err := os.ReadFile("schema.sql")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: cannot read schema.sql: %v\n", err)
		os.Exit(1)
	}
	if err := r.Migrate(ctx, string(schema)); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: migrate: %v\n", err)
		os.Exit(1)
	}
	repo = r

	code := m.Run()
	repo.Close()
	os.Exit(code)
}

func TestUpsertTargetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ip := "192.0.2.200"

	id1, err := repo.UpsertTarget(ctx, ip, models.SourceStatic)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	id2, err := repo.UpsertTarget(ctx, ip, models.SourceAPI)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same target id, got %d and %d", id1, id2)
	}
}

func TestClaimNextTaskIsPriorityOrdered(t *testing.T) {
	ctx := context.Background()

	// tasks.id is a UUID column, so the fixture ids must be valid UUIDs.
	const lowID = "00000000-0000-0000-0000-00000000000a"
	const highID = "00000000-0000-0000-0000-00000000000b"
	low := models.Task{ID: lowID, TargetIP: "198.51.100.10", Source: models.SourceRemeasure, Priority: 1, CreatedAt: time.Now()}
	high := models.Task{ID: highID, TargetIP: "198.51.100.11", Source: models.SourceStatic, Priority: 10, CreatedAt: time.Now()}

	if err := repo.InsertTask(ctx, low); err != nil {
		t.Fatalf("insert low: %v", err)
	}
	if err := repo.InsertTask(ctx, high); err != nil {
		t.Fatalf("insert high: %v", err)
	}

	claimed, err := repo.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != highID {
		t.Fatalf("expected to claim high-priority task first, got %+v", claimed)
	}

	second, err := repo.ClaimNextTask(ctx)
	if err != nil {
		t.Fatalf("claim second: %v", err)
	}
	if second == nil || second.ID != lowID {
		t.Fatalf("expected to claim low-priority task second, got %+v", second)
	}
}

func TestGraphEdgeUpsertIsAtomic(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	rtt1 := 10.0
	rtt2 := 20.0
	if err := repo.UpsertGraphEdge(ctx, tx, 64500, 64501, &rtt1, now); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertGraphEdge(ctx, tx, 64500, 64501, &rtt2, now); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	edge, err := repo.Edge(ctx, 64500, 64501)
	if err != nil {
		t.Fatalf("get edge: %v", err)
	}
	if edge == nil {
		t.Fatalf("expected edge to exist")
	}
	if edge.ObservedCount != 2 {
		t.Fatalf("expected observed_count 2, got %d", edge.ObservedCount)
	}
	if edge.MinRTTMs != 10.0 || edge.MaxRTTMs != 20.0 {
		t.Fatalf("expected min/max 10/20, got %v/%v", edge.MinRTTMs, edge.MaxRTTMs)
	}
}
