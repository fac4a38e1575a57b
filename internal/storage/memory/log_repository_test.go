package memory_test

import (
	"testing"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
)

func TestLogRepository_AppendAndList(t *testing.T) {
	repo := memory.NewLogRepository()

	actor := int64(7)
	if err := repo.Append(&actor, domain.AuditActionOrderPlaced, "Order #1 placed"); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := repo.Append(nil, domain.AuditActionStatusChange, "Order #1 status changed to 'Completed'"); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := repo.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].Action != domain.AuditActionStatusChange {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].UserID != nil {
		t.Fatalf("system entry must have nil actor, got %v", entries[0].UserID)
	}
	if entries[1].UserID == nil || *entries[1].UserID != actor {
		t.Fatalf("unexpected actor: %v", entries[1].UserID)
	}
	if entries[0].ID <= entries[1].ID {
		t.Fatalf("ids must grow with appends: %d vs %d", entries[0].ID, entries[1].ID)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	limited, err := repo.List(1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != entries[0].ID {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	empty, err := memory.NewLogRepository().List(5)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty journal, got %d", len(empty))
	}
}
