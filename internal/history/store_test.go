package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"example.com/restock/internal/sqliteutil"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := sqliteutil.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewStore(db)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx), "init is idempotent")
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, stock.Snapshot{
			Product:    "P123",
			ProductID:  42,
			Country:    "GB",
			Variants:   []storefront.Variant{{ID: "v1", MerchantID: 7, Quantity: int64(i + 1), Size: "M"}},
			ObservedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.Record(ctx, stock.Snapshot{Product: "OTHER", ProductID: 1, Country: "IT", ObservedAt: base}))

	got, err := s.Recent(ctx, "P123", 2)
	require.NoError(t, err)
	want := []stock.Snapshot{
		{Product: "P123", ProductID: 42, Country: "GB", Variants: []storefront.Variant{{ID: "v1", MerchantID: 7, Quantity: 3, Size: "M"}}, ObservedAt: base.Add(2 * time.Second)},
		{Product: "P123", ProductID: 42, Country: "GB", Variants: []storefront.Variant{{ID: "v1", MerchantID: 7, Quantity: 2, Size: "M"}}, ObservedAt: base.Add(time.Second)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Recent mismatch (-want +got):\n%s", diff)
	}

	none, err := s.Recent(ctx, "MISSING", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}
