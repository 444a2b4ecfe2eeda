package db

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "atelier/internal/domain/cart"
)

func newMockRepo(t *testing.T) (*CartRepositoryPG, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewCartRepositoryPG(conn), mock
}

func TestSetQuantityZeroOnAbsentRowSucceeds(t *testing.T) {
	repo, mock := newMockRepo(t)

	// qty <= 0 is equivalent to Remove: zero rows affected is still success
	mock.ExpectExec(`DELETE FROM cart_items WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("owner-1", "missing-row").
		WillReturnResult(sqlmock.NewResult(0, 0))

	it, err := repo.SetQuantity(context.Background(), "owner-1", "missing-row", 0)
	require.NoError(t, err)
	assert.Equal(t, cartdom.Item{}, it)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetQuantityPositiveOnAbsentRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE cart_items`).
		WithArgs("owner-1", "missing-row", 3, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SetQuantity(context.Background(), "owner-1", "missing-row", 3)
	assert.ErrorIs(t, err, cartdom.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveAbsentRowIsIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM cart_items WHERE owner_id = \$1 AND id = \$2`).
		WithArgs("owner-1", "missing-row").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Remove(context.Background(), "owner-1", "missing-row"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddAccumulatesQuantityViaUpsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	k, err := cartdom.NewKey(cartdom.FamilyProduct, "p-001", "", "v-red")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM product_variants`).
		WithArgs("p-001", "v-red").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(`INSERT INTO cart_items`).
		WithArgs(sqlmock.AnyArg(), "owner-1", "product", "p-001", "", "v-red", 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "qty"}).AddRow("row-1", 5))

	it, err := repo.Add(context.Background(), "owner-1", k, 3)
	require.NoError(t, err)
	assert.Equal(t, "row-1", it.RowID)
	assert.Equal(t, 5, it.Qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUnknownCatalogEntityIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	k, err := cartdom.NewKey(cartdom.FamilyMerch, "", "m-404", "")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM merch_items`).
		WithArgs("m-404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.Add(context.Background(), "owner-1", k, 1)
	assert.ErrorIs(t, err, cartdom.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
