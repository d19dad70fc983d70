package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spendtrack/spendtrack/internal/domain/user"
	"github.com/spendtrack/spendtrack/internal/repo/memory"
)

func TestCreateAndLookup(t *testing.T) {
	r := memory.NewUsersRepo()
	ctx := context.Background()

	u, err := r.Create(ctx, "Ann", "a@x.com", "hash")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byEmail, err := r.GetByEmail(ctx, "a@x.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", byEmail, err)
	}

	byID, err := r.GetByID(ctx, u.ID)
	if err != nil || byID.Email != "a@x.com" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	r := memory.NewUsersRepo()
	ctx := context.Background()

	if _, err := r.Create(ctx, "Ann", "a@x.com", "hash"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := r.Create(ctx, "Other Ann", "a@x.com", "hash2")
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
}

func TestUnknownLookups(t *testing.T) {
	r := memory.NewUsersRepo()
	ctx := context.Background()

	if _, err := r.GetByEmail(ctx, "nobody@x.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("GetByEmail: got %v, want ErrNotFound", err)
	}

	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("GetByID: got %v, want ErrNotFound", err)
	}
}
