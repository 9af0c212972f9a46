package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"golang.org/x/sync/errgroup"

	"reelcast/internal/models"
)

func testReel(id string) models.Reel {
	return models.Reel{
		ReelID:          id,
		StockIdentifier: "ACME",
		StorageKey:      fmt.Sprintf("reels/ACME_%s.mp4", id),
		LikedBy:         []string{},
		Timestamp:       1700000000000,
	}
}

func TestCreateAndGetReel(t *testing.T) {
	store, err := NewStorage("")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	reel := testReel("reel-1")
	reel.Caption = "first"
	if err := store.CreateReel(ctx, reel); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	got, ok, err := store.GetReel(ctx, "reel-1")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if !ok {
		t.Fatal("reel not found after create")
	}
	if got.Caption != "first" || got.Likes != 0 || len(got.LikedBy) != 0 {
		t.Fatalf("unexpected reel: %+v", got)
	}
}

func TestCreateReelRejectsDuplicate(t *testing.T) {
	store, _ := NewStorage("")
	ctx := context.Background()
	if err := store.CreateReel(ctx, testReel("reel-1")); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}
	err := store.CreateReel(ctx, testReel("reel-1"))
	if !errors.Is(err, ErrDuplicateReel) {
		t.Fatalf("err = %v, want ErrDuplicateReel", err)
	}
}

func TestGetReelMissing(t *testing.T) {
	store, _ := NewStorage("")
	_, ok, err := store.GetReel(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if ok {
		t.Fatal("expected missing reel")
	}
}

func TestAddLikeAppendsWithoutDeduplication(t *testing.T) {
	store, _ := NewStorage("")
	ctx := context.Background()
	if err := store.CreateReel(ctx, testReel("reel-1")); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.AddLike(ctx, "reel-1", "client-a"); err != nil {
			t.Fatalf("AddLike #%d: %v", i+1, err)
		}
	}

	got, _, err := store.GetReel(ctx, "reel-1")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if got.Likes != 3 {
		t.Fatalf("likes = %d, want 3", got.Likes)
	}
	if len(got.LikedBy) != 3 {
		t.Fatalf("liked_by length = %d, want 3 (repeat likes append again)", len(got.LikedBy))
	}
}

func TestAddLikeMissingReel(t *testing.T) {
	store, _ := NewStorage("")
	_, err := store.AddLike(context.Background(), "nope", "client-a")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddLikeConcurrentClients(t *testing.T) {
	store, _ := NewStorage("")
	ctx := context.Background()
	if err := store.CreateReel(ctx, testReel("reel-1")); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	const likers = 50
	var group errgroup.Group
	for i := 0; i < likers; i++ {
		clientID := fmt.Sprintf("client-%02d", i)
		group.Go(func() error {
			_, err := store.AddLike(ctx, "reel-1", clientID)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("concurrent AddLike: %v", err)
	}

	got, _, err := store.GetReel(ctx, "reel-1")
	if err != nil {
		t.Fatalf("GetReel: %v", err)
	}
	if got.Likes != likers {
		t.Fatalf("likes = %d, want %d (lost update)", got.Likes, likers)
	}
	if len(got.LikedBy) != likers {
		t.Fatalf("liked_by length = %d, want %d", len(got.LikedBy), likers)
	}
	seen := make(map[string]bool, likers)
	for _, client := range got.LikedBy {
		if seen[client] {
			t.Fatalf("client %s appended twice", client)
		}
		seen[client] = true
	}
}

func TestListReelsCopiesLikedBy(t *testing.T) {
	store, _ := NewStorage("")
	ctx := context.Background()
	reel := testReel("reel-1")
	reel.LikedBy = []string{"client-a"}
	reel.Likes = 1
	if err := store.CreateReel(ctx, reel); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	listed, err := store.ListReels(ctx)
	if err != nil {
		t.Fatalf("ListReels: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("len = %d, want 1", len(listed))
	}
	listed[0].LikedBy[0] = "mutated"

	got, _, _ := store.GetReel(ctx, "reel-1")
	if got.LikedBy[0] != "client-a" {
		t.Fatal("ListReels leaked the stored liked_by slice")
	}
}

func TestListReelsEmptyStore(t *testing.T) {
	store, _ := NewStorage("")
	listed, err := store.ListReels(context.Background())
	if err != nil {
		t.Fatalf("ListReels: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("len = %d, want 0", len(listed))
	}
}

func TestJSONPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reels.json")
	ctx := context.Background()

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	for _, id := range []string{"reel-1", "reel-2"} {
		if err := store.CreateReel(ctx, testReel(id)); err != nil {
			t.Fatalf("CreateReel %s: %v", id, err)
		}
	}
	if _, err := store.AddLike(ctx, "reel-2", "client-a"); err != nil {
		t.Fatalf("AddLike: %v", err)
	}

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	listed, err := reopened.ListReels(ctx)
	if err != nil {
		t.Fatalf("ListReels: %v", err)
	}
	ids := make([]string, 0, len(listed))
	for _, reel := range listed {
		ids = append(ids, reel.ReelID)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "reel-1" || ids[1] != "reel-2" {
		t.Fatalf("ids = %v, want [reel-1 reel-2]", ids)
	}

	got, _, _ := reopened.GetReel(ctx, "reel-2")
	if got.Likes != 1 || len(got.LikedBy) != 1 {
		t.Fatalf("like did not survive restart: %+v", got)
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	store, _ := NewStorage("")
	ctx := context.Background()
	if err := store.CreateReel(ctx, testReel("reel-1")); err != nil {
		t.Fatalf("CreateReel: %v", err)
	}

	persistErr := errors.New("disk full")
	store.persistOverride = func(dataset) error { return persistErr }

	if _, err := store.AddLike(ctx, "reel-1", "client-a"); !errors.Is(err, persistErr) {
		t.Fatalf("err = %v, want persist failure", err)
	}

	store.persistOverride = nil
	got, _, _ := store.GetReel(ctx, "reel-1")
	if got.Likes != 0 || len(got.LikedBy) != 0 {
		t.Fatalf("failed persist left partial like: %+v", got)
	}
}
