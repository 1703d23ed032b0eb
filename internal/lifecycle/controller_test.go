package lifecycle

import (
	"testing"

	"github.com/rgourley/styleluxe/internal/db"
)

func TestCanTransition_LegalMoves(t *testing.T) {
	t.Parallel()

	if !CanTransition(db.StatusFlagged, db.StatusDraft) {
		t.Fatalf("flagged -> draft must be legal")
	}
	if !CanTransition(db.StatusDraft, db.StatusPublished) {
		t.Fatalf("draft -> published must be legal")
	}
	if !CanTransition(db.StatusPublished, db.StatusFlagged) {
		t.Fatalf("published -> flagged (re-flag) must be legal")
	}
}

func TestCanTransition_NoSkippingDraft(t *testing.T) {
	t.Parallel()

	if CanTransition(db.StatusFlagged, db.StatusPublished) {
		t.Fatalf("flagged -> published must not skip draft")
	}
	if CanTransition(db.StatusDraft, db.StatusFlagged) {
		t.Fatalf("draft -> flagged is not a defined transition")
	}
	if CanTransition(db.StatusPublished, db.StatusDraft) {
		t.Fatalf("published -> draft is not a defined transition")
	}
	if CanTransition("unknown", db.StatusDraft) {
		t.Fatalf("unknown states must not transition")
	}
}
