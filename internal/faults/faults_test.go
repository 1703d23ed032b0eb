package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsNotFound_ThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("resolve target: %w", NotFound("product", "p-42"))
	if !IsNotFound(err) {
		t.Fatalf("expected wrapped NotFoundError to be detected")
	}
	if IsStorage(err) || IsAdapter(err) || IsValidation(err) {
		t.Fatalf("not-found error matched an unrelated category")
	}
}

func TestStorage_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := Storage("insert signal", cause)
	if !IsStorage(err) {
		t.Fatalf("expected StorageError to be detected")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected storage error to unwrap to its cause")
	}
}

func TestAdapter_MessageIncludesIdentity(t *testing.T) {
	t.Parallel()

	err := Adapter("primary_sales_source", "Glow Serum", errors.New("timeout"))
	msg := err.Error()
	if !strings.Contains(msg, "primary_sales_source") {
		t.Fatalf("adapter error %q missing source identity", msg)
	}
	if !strings.Contains(msg, "Glow Serum") {
		t.Fatalf("adapter error %q missing candidate identity", msg)
	}
}

func TestInvalid_FieldPrefix(t *testing.T) {
	t.Parallel()

	err := Invalid("value", "must not be negative")
	if got, want := err.Error(), "value: must not be negative"; got != want {
		t.Fatalf("unexpected message: got %q want %q", got, want)
	}
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError to be detected")
	}
}
