package bookstore_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollex.nl/prefetch"
	"pollex.nl/prefetch/bookstore"
)

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSeedProducesRequestedCounts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, bookstore.ApplySchema(ctx, db))
	sess := prefetch.NewSession(db, prefetch.SQLite)

	summary, err := bookstore.Seed(ctx, sess, bookstore.SeedOpts{
		Authors: 30,
		Books:   150,
		Orders:  40,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, summary.Authors)
	assert.Equal(t, 30, summary.Users)
	assert.Equal(t, 150, summary.Books)
	assert.Equal(t, 40, summary.Orders)
	assert.Equal(t, 10, summary.Categories)
	assert.Equal(t, 5, summary.Publishers)

	assert.Equal(t, 30, countRows(t, db, "authors"))
	assert.Equal(t, 150, countRows(t, db, "books"))
	assert.Equal(t, 40, countRows(t, db, "orders"))
	assert.Equal(t, summary.Reviews, countRows(t, db, "reviews"))
	assert.Equal(t, summary.OrderItems, countRows(t, db, "order_items"))

	// Every reference must point at an existing row.
	for _, check := range []struct {
		name  string
		query string
	}{
		{"book author", `SELECT COUNT(*) FROM books LEFT JOIN authors ON authors.id = books.author_id WHERE authors.id IS NULL`},
		{"book publisher", `SELECT COUNT(*) FROM books LEFT JOIN publishers ON publishers.id = books.publisher_id WHERE publishers.id IS NULL`},
		{"review book", `SELECT COUNT(*) FROM reviews LEFT JOIN books ON books.id = reviews.book_id WHERE books.id IS NULL`},
		{"review reviewer", `SELECT COUNT(*) FROM reviews LEFT JOIN users ON users.id = reviews.reviewer_id WHERE users.id IS NULL`},
		{"order customer", `SELECT COUNT(*) FROM orders LEFT JOIN users ON users.id = orders.customer_id WHERE users.id IS NULL`},
		{"item order", `SELECT COUNT(*) FROM order_items LEFT JOIN orders ON orders.id = order_items.order_id WHERE orders.id IS NULL`},
		{"item book", `SELECT COUNT(*) FROM order_items LEFT JOIN books ON books.id = order_items.book_id WHERE books.id IS NULL`},
		{"pivot book", `SELECT COUNT(*) FROM book_categories LEFT JOIN books ON books.id = book_categories.book_id WHERE books.id IS NULL`},
		{"pivot category", `SELECT COUNT(*) FROM book_categories LEFT JOIN categories ON categories.id = book_categories.category_id WHERE categories.id IS NULL`},
	} {
		var dangling int
		require.NoError(t, db.QueryRow(check.query).Scan(&dangling))
		assert.Zero(t, dangling, "dangling %s references", check.name)
	}

	// Every book carries at least one category and orders stay within the
	// one-to-five item range.
	var minCategories int
	require.NoError(t, db.QueryRow(
		`SELECT MIN(n) FROM (SELECT COUNT(*) AS n FROM book_categories GROUP BY book_id)`,
	).Scan(&minCategories))
	assert.GreaterOrEqual(t, minCategories, 1)

	var maxItems int
	require.NoError(t, db.QueryRow(
		`SELECT MAX(n) FROM (SELECT COUNT(*) AS n FROM order_items GROUP BY order_id)`,
	).Scan(&maxItems))
	assert.LessOrEqual(t, maxItems, 5)
}

func TestSeedClearsPreviousData(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, bookstore.ApplySchema(ctx, db))
	sess := prefetch.NewSession(db, prefetch.SQLite)

	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 10, Books: 40, Orders: 15})
	require.NoError(t, err)
	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 4, Books: 12, Orders: 3})
	require.NoError(t, err)

	assert.Equal(t, 4, countRows(t, db, "authors"))
	assert.Equal(t, 12, countRows(t, db, "books"))
	assert.Equal(t, 3, countRows(t, db, "orders"))
}

func TestSeedRejectsBadCounts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, bookstore.ApplySchema(ctx, db))
	sess := prefetch.NewSession(db, prefetch.SQLite)

	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 0, Books: 10})
	assert.ErrorIs(t, err, bookstore.ErrBadSeedCount)

	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 10, Books: -1})
	assert.ErrorIs(t, err, bookstore.ErrBadSeedCount)

	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 10, Books: 10, Orders: -1})
	assert.ErrorIs(t, err, bookstore.ErrBadSeedCount)

	// Zero orders is a valid, order-free data set.
	_, err = bookstore.Seed(ctx, sess, bookstore.SeedOpts{Authors: 2, Books: 4, Orders: 0})
	assert.NoError(t, err)
	assert.Equal(t, 0, countRows(t, db, "orders"))
}
