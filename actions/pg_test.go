package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/minilodon/actions"
	"github.com/onnwee/minilodon/testutil"
)

func TestPGStoreRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = database.ExecContext(context.Background(), `DELETE FROM actions WHERE category = 'pgtest'`)
	})

	s := actions.NewPGStore(database)
	if err := s.Put(ctx, "PGTest", "Key", "first"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "pgtest", "key", "second"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	c, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c["pgtest"]["key"]; got != "second" {
		t.Errorf("template = %q, want second", got)
	}

	if err := s.Delete(ctx, "pgtest", "other"); !errors.Is(err, actions.ErrKeyNotFound) {
		t.Errorf("Delete(missing key) = %v", err)
	}
	if err := s.Delete(ctx, "nosuchcategory", "key"); !errors.Is(err, actions.ErrCategoryNotFound) {
		t.Errorf("Delete(missing category) = %v", err)
	}
	if err := s.Delete(ctx, "pgtest", "key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
