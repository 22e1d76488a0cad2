package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPurchaseOrderRepository creates a GormPurchaseOrderRepository with a mocked SQL connection
func newMockPurchaseOrderRepository(t *testing.T) (*GormPurchaseOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPurchaseOrderRepository(gormDB), mock, mockDB
}

func TestGormPurchaseOrderRepository_FindByID(t *testing.T) {
	t.Run("finds existing order with lines preloaded", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		vendorID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "order_number", "vendor_id", "issued_at"}).
			AddRow(orderID, now, now, "PO-2026-0001", vendorID, now)

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(orderID, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT \* FROM "purchase_order_lines"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "ordered_qty", "unit_price"}))

		order, err := repo.FindByID(context.Background(), orderID)

		assert.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, orderID, order.ID)
		assert.Equal(t, "PO-2026-0001", order.OrderNumber)
		assert.Equal(t, vendorID, order.VendorID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing order", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(orderID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		order, err := repo.FindByID(context.Background(), orderID)

		assert.Error(t, err)
		assert.Nil(t, order)
		assert.True(t, shared.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_FindByOrderNumber(t *testing.T) {
	t.Run("returns not found for unknown number", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE order_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("PO-MISSING", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		order, err := repo.FindByOrderNumber(context.Background(), "PO-MISSING")

		assert.Nil(t, order)
		assert.True(t, shared.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_Count(t *testing.T) {
	t.Run("counts orders for a vendor", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		vendorID := uuid.New()
		filter := shared.Filter{Filters: map[string]interface{}{"vendor_id": vendorID}}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_orders" WHERE vendor_id = \$1`).
			WithArgs(vendorID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.Count(context.Background(), filter)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
