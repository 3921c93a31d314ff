package account

import (
	"context"
	"errors"
	"testing"
)

func TestUnknownFieldRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateAccount(ctx, "u1", "alice"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := s.GetField(ctx, "u1", "password"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := s.SetField(ctx, "u1", "drop_table", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := s.GetColumn(ctx, "username; --"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestDecrementFloorsAtZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateAccount(ctx, "u1", "alice"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := s.SetField(ctx, "u1", FieldAffection, 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.DecrementField(ctx, "u1", FieldAffection, 5); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	got, err := s.GetField(ctx, "u1", FieldAffection)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 0 {
		t.Fatalf("affection = %d, want 0", got)
	}
}

func TestMissingAccount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.GetField(ctx, "ghost", FieldAffection); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
	if err := s.IncrementField(ctx, "ghost", FieldAffection, 1); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("expected ErrNoAccount, got %v", err)
	}
}

func TestCreateAccountIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.CreateAccount(ctx, "u1", "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetField(ctx, "u1", FieldBondLevel, 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.CreateAccount(ctx, "u1", "alice"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	got, _ := s.GetField(ctx, "u1", FieldBondLevel)
	if got != 7 {
		t.Fatalf("bond_level = %d after duplicate create, want 7", got)
	}
}

func TestGetTopByColumn(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seed := map[string]int64{"u1": 5, "u2": 30, "u3": 12, MascotID: 999}
	for id, lvl := range seed {
		if err := s.CreateAccount(ctx, id, id); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if err := s.SetField(ctx, id, FieldBondLevel, lvl); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}

	top, err := s.GetTopByColumn(ctx, FieldBondLevel, FieldBondLevel, 2, MascotID)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d entries, want 2", len(top))
	}
	if top[0].UserID != "u2" || top[0].Value != 30 {
		t.Fatalf("top[0] = %+v, want u2/30", top[0])
	}
	if top[1].UserID != "u3" || top[1].Value != 12 {
		t.Fatalf("top[1] = %+v, want u3/12", top[1])
	}
}
