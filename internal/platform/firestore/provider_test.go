package firestore

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/messageplans/api/internal/platform/config"
)

func TestRunTransactionRequiresFunc(t *testing.T) {
	provider := NewProvider(config.FirestoreConfig{ProjectID: "test"})
	t.Cleanup(func() { _ = provider.Close() })

	if err := provider.RunTransaction(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil transaction function")
	}
}

func TestProviderRejectsUseAfterClose(t *testing.T) {
	provider := NewProvider(config.FirestoreConfig{ProjectID: "test"})
	if err := provider.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := provider.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed from Client, got %v", err)
	}

	fn := func(context.Context, *firestore.Transaction) error { return nil }
	if err := provider.RunTransaction(context.Background(), fn); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed from RunTransaction, got %v", err)
	}
}
