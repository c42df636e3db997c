package repository

import (
	"context"
	"testing"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "OC-2026-00001", FormatOrderNumber(2026, 1))
	assert.Equal(t, "OC-2026-12345", FormatOrderNumber(2026, 12345))
}

func TestNextOrderNumberComparesSequencesNumerically(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	supplier := testutil.SeedSupplier(t, db, "Alpha", "alpha@example.com")
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := NewPurchaseOrderRepository(db)

	for _, number := range []string{"OC-2026-99999", "OC-2026-100000", "OC-2025-200000"} {
		require.NoError(t, repo.Create(ctx, &entity.PurchaseOrder{
			ID:          uuid.New().String()[:32],
			OrderNumber: number,
			SupplierID:  supplier.ID,
			Status:      entity.POStatusPending,
		}))
	}

	var next string
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		next, err = repo.WithTx(tx).NextOrderNumber(ctx, now)
		return err
	}))
	assert.Equal(t, "OC-2026-100001", next)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		next, err = repo.WithTx(tx).NextOrderNumber(ctx, now.AddDate(1, 0, 0))
		return err
	}))
	assert.Equal(t, "OC-2027-00001", next)
}

func TestPaginate(t *testing.T) {
	offset, limit := paginate(3, 20)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 20, limit)

	offset, limit = paginate(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)
}
