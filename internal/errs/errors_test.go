package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestFieldErrorMatchesInvalid(t *testing.T) {
	err := fmt.Errorf("create: %w", Field("amount", "must be > 0"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid match")
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "amount" {
		t.Fatalf("expected field detail, got %v", err)
	}
}

func TestWrappers(t *testing.T) {
	if !errors.Is(Consistency("schema %s", "x"), ErrConsistency) {
		t.Fatalf("consistency")
	}
	if !errors.Is(Conflict("dup"), ErrConflict) {
		t.Fatalf("conflict")
	}
	if !errors.Is(NotFound("bank account"), ErrNotFound) {
		t.Fatalf("not found")
	}
}
