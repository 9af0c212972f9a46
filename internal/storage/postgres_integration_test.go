//go:build postgres

package storage_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"reelcast/internal/models"
	"reelcast/internal/storage"
)

// openTestRepository connects to the database named by REELCAST_TEST_POSTGRES_DSN
// and truncates the reels table so scenarios start from a clean slate. The DSN
// must point at a database dedicated to automated runs.
func openTestRepository(t *testing.T) *storage.PostgresRepository {
	t.Helper()
	dsn := os.Getenv("REELCAST_TEST_POSTGRES_DSN")
	if strings.TrimSpace(dsn) == "" {
		t.Skip("REELCAST_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repo, err := storage.NewPostgresRepository(ctx, dsn,
		storage.WithPostgresApplicationName("reelcast-test"),
	)
	if err != nil {
		t.Fatalf("open postgres repository: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		repo.Close(cleanupCtx)
	})
	if err := repo.Truncate(ctx); err != nil {
		t.Fatalf("truncate reels: %v", err)
	}
	return repo
}

func integrationReel(id string) models.Reel {
	return models.Reel{
		ReelID:          id,
		StockIdentifier: "ACME",
		StorageKey:      fmt.Sprintf("reels/ACME_%s.mp4", id),
		Caption:         "integration",
		LikedBy:         []string{},
		Timestamp:       time.Now().UnixMilli(),
	}
}

func TestPostgresCreateGetList(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	reel := integrationReel("reel-1")
	reel.JobID = "job-1"
	if err := repo.CreateReel(ctx, reel); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}
	if err := repo.CreateReel(ctx, reel); !errors.Is(err, storage.ErrDuplicateReel) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateReel", err)
	}

	got, ok, err := repo.GetReel(ctx, "reel-1")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if !ok {
		t.Fatal("reel not found after create")
	}
	if got.JobID != "job-1" || got.Timestamp != reel.Timestamp {
		t.Fatalf("unexpected reel: %+v", got)
	}

	listed, err := repo.ListReels(ctx)
	if err != nil {
		t.Fatalf("ListReels: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("len = %d, want 1", len(listed))
	}
}

func TestPostgresAddLikeConcurrent(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	if err := repo.CreateReel(ctx, integrationReel("reel-1")); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	const likers = 20
	var group errgroup.Group
	for i := 0; i < likers; i++ {
		clientID := fmt.Sprintf("client-%02d", i)
		group.Go(func() error {
			_, err := repo.AddLike(ctx, "reel-1", clientID)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent AddLike: %v", err)
	}

	got, _, err := repo.GetReel(ctx, "reel-1")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if got.Likes != likers {
		t.Fatalf("likes = %d, want %d (lost update)", got.Likes, likers)
	}
	if len(got.LikedBy) != likers {
		t.Fatalf("liked_by length = %d, want %d", len(got.LikedBy), likers)
	}
}

func TestPostgresAddLikeMissingReel(t *testing.T) {
	repo := openTestRepository(t)
	if _, err := repo.AddLike(context.Background(), "nope", "client-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
