package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"logi-match/internal/domain"
)

func TestMemoryMessageRepository_OrderAndLimit(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_ = repo.Insert(ctx, domain.Message{ChannelID: "c", UserID: "B", Text: "second", Timestamp: base.Add(time.Second)})
	_ = repo.Insert(ctx, domain.Message{ChannelID: "c", UserID: "A", Text: "first", Timestamp: base})
	_ = repo.Insert(ctx, domain.Message{ChannelID: "c", UserID: "A", Text: "third", Timestamp: base.Add(2 * time.Second)})
	_ = repo.Insert(ctx, domain.Message{ChannelID: "other", UserID: "A", Text: "elsewhere", Timestamp: base})

	all, err := repo.ListByChannel(ctx, "c", 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != 3 || all[0].Text != "first" || all[2].Text != "third" {
		t.Fatalf("expected ascending order, got %+v", all)
	}

	recent, _ := repo.ListByChannel(ctx, "c", 2)
	if len(recent) != 2 || recent[0].Text != "second" || recent[1].Text != "third" {
		t.Fatalf("expected most recent window, got %+v", recent)
	}
}

func TestMemoryProfileRepository(t *testing.T) {
	repo := NewMemoryProfileRepository(domain.Profile{UserID: "u1", Name: "Kim"})
	if p, err := repo.GetByUserID(context.Background(), " u1 "); err != nil || p.Name != "Kim" {
		t.Fatalf("expected profile, got %+v err=%v", p, err)
	}
	if _, err := repo.GetByUserID(context.Background(), "u2"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}
