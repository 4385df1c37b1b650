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

func setupStore(t testing.TB, opts bookstore.SeedOpts) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, bookstore.ApplySchema(ctx, db))

	_, err = bookstore.Seed(ctx, prefetch.NewSession(db, prefetch.SQLite), opts)
	require.NoError(t, err)

	return db
}

// freshStore gives each loading strategy its own session so query counts can
// be compared.
func freshStore(db *sql.DB) *bookstore.Store {
	return bookstore.NewStore(prefetch.NewSession(db, prefetch.SQLite))
}

func TestBookListingPairsAgree(t *testing.T) {
	// Arrange
	db := setupStore(t, bookstore.SeedOpts{Authors: 6, Books: 20, Orders: 10})
	naiveStore := freshStore(db)
	plannedStore := freshStore(db)
	ctx := context.Background()

	// Act
	naive, err := naiveStore.BooksNaive(ctx)
	require.NoError(t, err)
	planned, err := plannedStore.BooksPlanned(ctx)
	require.NoError(t, err)

	// Assert
	require.Len(t, naive, 20)
	assert.Equal(t, naive, planned)

	// The category schema orders by name, so both loading strategies return
	// the lists in the same order without any sorting here.
	for _, book := range planned {
		for ix := 1; ix < len(book.Categories); ix++ {
			assert.Less(t, book.Categories[ix-1].Name, book.Categories[ix].Name,
				"categories must come back name-ordered")
		}
	}

	assert.EqualValues(t, 1+3*len(naive), naiveStore.Session().Queries(),
		"naive listing pays three extra queries per book")
	assert.EqualValues(t, 2, plannedStore.Session().Queries(),
		"planned listing is one joined query plus one category batch")
}

func TestAuthorListingPairsAgree(t *testing.T) {
	db := setupStore(t, bookstore.SeedOpts{Authors: 8, Books: 30, Orders: 10})
	naiveStore := freshStore(db)
	plannedStore := freshStore(db)
	ctx := context.Background()

	naive, err := naiveStore.AuthorsNaive(ctx)
	require.NoError(t, err)
	planned, err := plannedStore.AuthorsPlanned(ctx)
	require.NoError(t, err)

	require.Len(t, naive, 8)
	assert.Equal(t, naive, planned)

	assert.EqualValues(t, 1+2*len(naive), naiveStore.Session().Queries())
	assert.EqualValues(t, 2, plannedStore.Session().Queries(),
		"user join and book count ride on the base query, books on one batch")
}

func TestBookReviewPairsAgree(t *testing.T) {
	db := setupStore(t, bookstore.SeedOpts{Authors: 5, Books: 15, Orders: 10})
	naiveStore := freshStore(db)
	plannedStore := freshStore(db)
	ctx := context.Background()

	naive, err := naiveStore.BooksWithReviewsNaive(ctx)
	require.NoError(t, err)
	planned, err := plannedStore.BooksWithReviewsPlanned(ctx)
	require.NoError(t, err)

	require.Len(t, naive, 15)
	assert.Equal(t, naive, planned)

	// One author and one reviews query per book, plus one reviewer lookup
	// per review.
	wantNaive := 1 + 2*len(naive)
	for _, book := range naive {
		wantNaive += len(book.Reviews)
	}
	assert.EqualValues(t, wantNaive, naiveStore.Session().Queries())
	assert.EqualValues(t, 2, plannedStore.Session().Queries(),
		"reviewer join rides on the review batch")
}

func TestAuthorStatsPairsAgree(t *testing.T) {
	db := setupStore(t, bookstore.SeedOpts{Authors: 7, Books: 25, Orders: 10})
	naiveStore := freshStore(db)
	plannedStore := freshStore(db)
	ctx := context.Background()

	naive, err := naiveStore.AuthorStatsNaive(ctx)
	require.NoError(t, err)
	planned, err := plannedStore.AuthorStatsPlanned(ctx)
	require.NoError(t, err)

	require.Len(t, planned, len(naive))
	for ix := range naive {
		assert.Equal(t, naive[ix].ID, planned[ix].ID)
		assert.Equal(t, naive[ix].Name, planned[ix].Name)
		assert.Equal(t, naive[ix].BookCount, planned[ix].BookCount)
		assert.InDelta(t, naive[ix].AvgRating, planned[ix].AvgRating, 1e-9)
	}

	assert.EqualValues(t, 1+2*len(naive), naiveStore.Session().Queries())
	assert.EqualValues(t, 1, plannedStore.Session().Queries(),
		"both statistics are aggregate columns on the base query")
}

func TestAuthorStatsCountNotInflatedByReviews(t *testing.T) {
	// An author with one book and several reviews of it must still report a
	// book count of one, even though the review join multiplies the rows.
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, bookstore.ApplySchema(ctx, db))

	sess := prefetch.NewSession(db, prefetch.SQLite)
	exec := func(query string, args ...any) {
		_, err := sess.ExecContext(ctx, query, args...)
		require.NoError(t, err)
	}
	exec(`INSERT INTO users (id, username, email) VALUES (1, 'u1', 'u1@example.com')`)
	exec(`INSERT INTO authors (id, name, email, bio, user_id, created_at)
		VALUES (1, 'Ann Writer', 'ann@example.com', '', 1, '2024-01-01 00:00:00+00:00')`)
	exec(`INSERT INTO publishers (id, name, address, website) VALUES (1, 'P', '', '')`)
	exec(`INSERT INTO books (id, title, author_id, publisher_id, isbn, price, pages, published_date, created_at)
		VALUES (1, 'Only Book', 1, 1, '9780000000001', 10.0, 100, '2024-01-01', '2024-01-01 00:00:00+00:00')`)
	exec(`INSERT INTO reviews (id, book_id, reviewer_id, rating, comment, created_at) VALUES
		(1, 1, 1, 4, '', '2024-01-02 00:00:00+00:00'),
		(2, 1, 1, 2, '', '2024-01-03 00:00:00+00:00'),
		(3, 1, 1, 3, '', '2024-01-04 00:00:00+00:00')`)

	stats, err := bookstore.NewStore(sess).AuthorStatsPlanned(ctx)
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.EqualValues(t, 1, stats[0].BookCount)
	assert.InDelta(t, 3.0, stats[0].AvgRating, 1e-9)
}
