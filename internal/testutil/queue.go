package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codepulse/codepulse/internal/queue"
)

func NewQueue(t *testing.T) (*queue.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := queue.Open(ctx, filepath.Join(t.TempDir(), "codepulse-test.db"))
	if err != nil {
		t.Fatalf("open test queue: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}
