package bookstore

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"pollex.nl/prefetch"
)

// Listing sizes, as rendered by the demo views.
const (
	booksPageSize   = 50
	authorsPageSize = 50
	reviewsPageSize = 30
	statsPageSize   = 30
)

// Store exposes each listing twice: a naive variant that walks relationships
// row by row, and a planned variant that collapses the walk into joins,
// batched secondary queries or database-side aggregation. Both variants of a
// pair return identical data; only the round-trip count differs, which the
// store's session keeps track of.
type Store struct {
	sess *prefetch.Session
}

func NewStore(sess *prefetch.Session) *Store {
	return &Store{sess: sess}
}

// Session returns the session the store issues queries through.
func (store *Store) Session() *prefetch.Session {
	return store.sess
}

func (store *Store) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.
		RunWith(store.sess).
		PlaceholderFormat(store.sess.PlaceholderFormat())
}

// BooksNaive loads the book listing and then resolves author, publisher and
// categories for every book independently: 1 + 3N queries for N books.
func (store *Store) BooksNaive(ctx context.Context) ([]Book, error) {
	books, err := Books.Query("*").
		ModifyQuery(prefetch.Limit(booksPageSize)).
		Collect(ctx, store.sess)
	if err != nil {
		return nil, err
	}

	for ix := range books {
		book := &books[ix]

		author, err := Authors.Query("*").
			ModifyQuery(prefetch.WhereCol("id", book.AuthorID)).
			CollectOne(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		book.Author = *author

		publisher, err := Publishers.Query("*").
			ModifyQuery(prefetch.WhereCol("id", book.PublisherID)).
			CollectOne(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		book.Publisher = *publisher

		categories, err := Categories.Query("*").
			ModifyQuery(func(q prefetch.Q, table string) prefetch.Q {
				return q.
					Join("book_categories ON book_categories.category_id = categories.id").
					Where(squirrel.Eq{"book_categories.book_id": book.ID})
			}).
			Collect(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		book.Categories = categories
	}

	return books, nil
}

// BooksPlanned loads the same listing with author and publisher joined onto
// the base query and categories fetched in one batch: 2 queries total.
func (store *Store) BooksPlanned(ctx context.Context) ([]Book, error) {
	return Books.Query("*", "author", "publisher", "categories").
		ModifyQuery(prefetch.Limit(booksPageSize)).
		Collect(ctx, store.sess)
}

// AuthorsNaive loads the author listing and resolves the user account and
// books of every author independently: 1 + 2N queries for N authors.
func (store *Store) AuthorsNaive(ctx context.Context) ([]Author, error) {
	authors, err := Authors.Query("*").
		ModifyQuery(prefetch.Limit(authorsPageSize)).
		Collect(ctx, store.sess)
	if err != nil {
		return nil, err
	}

	for ix := range authors {
		author := &authors[ix]

		user, err := Users.Query("*").
			ModifyQuery(prefetch.WhereCol("id", author.UserID)).
			CollectOne(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		author.User = *user

		books, err := Books.Query("*").
			ModifyQuery(prefetch.WhereCol("author_id", author.ID)).
			Collect(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		author.Books = books
		author.BookCount = int64(len(books))
	}

	return authors, nil
}

// AuthorsPlanned joins the user account onto the base query, annotates the
// book count in the database and fetches all books in one batch: 2 queries.
func (store *Store) AuthorsPlanned(ctx context.Context) ([]Author, error) {
	return Authors.Query("*", "user", "books", "book_count").
		ModifyQuery(prefetch.Limit(authorsPageSize)).
		Collect(ctx, store.sess)
}

// BooksWithReviewsNaive loads books, then the author of each book, then the
// reviews of each book, then the reviewer of each review, all row by row.
func (store *Store) BooksWithReviewsNaive(ctx context.Context) ([]Book, error) {
	books, err := Books.Query("*").
		ModifyQuery(prefetch.Limit(reviewsPageSize)).
		Collect(ctx, store.sess)
	if err != nil {
		return nil, err
	}

	for ix := range books {
		book := &books[ix]

		author, err := Authors.Query("*").
			ModifyQuery(prefetch.WhereCol("id", book.AuthorID)).
			CollectOne(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		book.Author = *author

		reviews, err := Reviews.Query("*").
			ModifyQuery(prefetch.WhereCol("book_id", book.ID)).
			Collect(ctx, store.sess)
		if err != nil {
			return nil, err
		}

		for rx := range reviews {
			review := &reviews[rx]

			reviewer, err := Users.Query("*").
				ModifyQuery(prefetch.WhereCol("id", review.ReviewerID)).
				CollectOne(ctx, store.sess)
			if err != nil {
				return nil, err
			}
			review.Reviewer = *reviewer
		}
		book.Reviews = reviews
	}

	return books, nil
}

// BooksWithReviewsPlanned joins the author onto the base query and fetches
// all reviews in one batch that itself joins the reviewer: 2 queries, with
// the nested to-one relation riding on the batch.
func (store *Store) BooksWithReviewsPlanned(ctx context.Context) ([]Book, error) {
	return Books.Query("*", "author", "reviews", "reviews.reviewer").
		ModifyQuery(prefetch.Limit(reviewsPageSize)).
		Collect(ctx, store.sess)
}

// AuthorStatsNaive loads authors and then issues one COUNT and one AVG query
// per author: 1 + 2N queries.
func (store *Store) AuthorStatsNaive(ctx context.Context) ([]Author, error) {
	authors, err := Authors.Query("*").
		ModifyQuery(prefetch.Limit(statsPageSize)).
		Collect(ctx, store.sess)
	if err != nil {
		return nil, err
	}

	for ix := range authors {
		author := &authors[ix]

		err := store.builder().
			Select("COUNT(id)").
			From("books").
			Where(squirrel.Eq{"author_id": author.ID}).
			ScanContext(ctx, &author.BookCount)
		if err != nil {
			return nil, err
		}

		var avg sql.NullFloat64
		err = store.builder().
			Select("AVG(reviews.rating)").
			From("reviews").
			Join("books ON books.id = reviews.book_id").
			Where(squirrel.Eq{"books.author_id": author.ID}).
			ScanContext(ctx, &avg)
		if err != nil {
			return nil, err
		}
		if avg.Valid {
			author.AvgRating = avg.Float64
		}
	}

	return authors, nil
}

// AuthorStatsPlanned computes both statistics as aggregate columns on the
// base query: 1 query regardless of the number of authors.
func (store *Store) AuthorStatsPlanned(ctx context.Context) ([]Author, error) {
	return Authors.Query("*", "book_count", "avg_rating").
		ModifyQuery(prefetch.Limit(statsPageSize)).
		Collect(ctx, store.sess)
}
