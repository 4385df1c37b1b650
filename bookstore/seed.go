package bookstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"pollex.nl/prefetch"
)

// ErrBadSeedCount is returned for non-positive author/book counts.
var ErrBadSeedCount = errors.New("author and book counts must be positive")

type SeedOpts struct {
	Authors int
	Books   int
	Orders  int
}

type SeedSummary struct {
	Categories int
	Publishers int
	Users      int
	Authors    int
	Books      int
	Reviews    int
	Orders     int
	OrderItems int
}

var categorySeed = [][2]string{
	{"Fiction", "Fictional stories and novels"},
	{"Non-Fiction", "Factual and informative books"},
	{"Science Fiction", "Speculative fiction with scientific elements"},
	{"Mystery", "Mystery and detective stories"},
	{"Romance", "Romantic fiction"},
	{"Thriller", "Suspenseful and exciting stories"},
	{"Biography", "Biographical works"},
	{"History", "Historical accounts and analysis"},
	{"Science", "Scientific and technical books"},
	{"Philosophy", "Philosophical works"},
}

var publisherSeed = [][3]string{
	{"Penguin Random House", "1745 Broadway, New York, NY 10019", "https://www.penguinrandomhouse.com"},
	{"HarperCollins", "195 Broadway, New York, NY 10007", "https://www.harpercollins.com"},
	{"Simon & Schuster", "1230 Avenue of the Americas, New York, NY 10020", "https://www.simonandschuster.com"},
	{"Macmillan Publishers", "120 Broadway, New York, NY 10271", "https://www.macmillan.com"},
	{"Hachette Book Group", "1290 Avenue of the Americas, New York, NY 10104", "https://www.hachettebookgroup.com"},
}

var firstNames = []string{
	"John", "Jane", "Michael", "Sarah", "David",
	"Emily", "Robert", "Jessica", "William", "Amanda",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones",
	"Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
}

var bookTitles = []string{
	"The Great Adventure", "Mystery of the Night", "Love in Paris", "Science and Discovery",
	"The Hidden Truth", "Journey to the Stars", "Secrets of the Past", "Future Worlds",
	"The Last Stand", "Echoes of Time", "Beyond the Horizon", "The Final Chapter",
	"Shadows and Light", "The Quest Begins", "Endless Possibilities", "The Turning Point",
	"Lost and Found", "The Perfect Storm", "Breaking Barriers", "The New Dawn",
}

var reviewComments = []string{
	"Great book! Highly recommended.",
	"A wonderful read from start to finish.",
	"Interesting plot and well-developed characters.",
	"Could not put it down!",
	"A bit slow in the beginning but picks up.",
	"Not my favorite, but still enjoyable.",
	"Excellent writing style and engaging story.",
	"The ending was a bit disappointing.",
	"One of the best books I have read this year.",
	"Well worth the time to read.",
}

// Seed wipes the store and repopulates it with randomized but referentially
// valid rows: every book points at an existing author and publisher, every
// review at an existing book and user.
func Seed(ctx context.Context, sess *prefetch.Session, opts SeedOpts) (SeedSummary, error) {
	var summary SeedSummary

	if opts.Authors <= 0 || opts.Books <= 0 {
		return summary, fmt.Errorf("%w: authors=%d books=%d", ErrBadSeedCount, opts.Authors, opts.Books)
	}
	if opts.Orders < 0 {
		return summary, fmt.Errorf("%w: orders=%d", ErrBadSeedCount, opts.Orders)
	}

	if err := clear(ctx, sess); err != nil {
		return summary, err
	}

	builder := squirrel.StatementBuilder.
		RunWith(sess).
		PlaceholderFormat(sess.PlaceholderFormat())
	now := time.Now().UTC()

	// Categories and publishers come from fixed sets.
	var rows [][]any
	for ix, c := range categorySeed {
		rows = append(rows, []any{ix + 1, c[0], c[1]})
	}
	if err := insertRows(ctx, builder, "categories", []string{"id", "name", "description"}, rows); err != nil {
		return summary, err
	}
	summary.Categories = len(categorySeed)

	rows = rows[:0]
	for ix, p := range publisherSeed {
		rows = append(rows, []any{ix + 1, p[0], p[1], p[2]})
	}
	if err := insertRows(ctx, builder, "publishers", []string{"id", "name", "address", "website"}, rows); err != nil {
		return summary, err
	}
	summary.Publishers = len(publisherSeed)

	// One user account per author.
	rows = rows[:0]
	for i := 1; i <= opts.Authors; i++ {
		username := fmt.Sprintf("user_%d", i)
		rows = append(rows, []any{i, username, username + "@example.com"})
	}
	if err := insertRows(ctx, builder, "users", []string{"id", "username", "email"}, rows); err != nil {
		return summary, err
	}
	summary.Users = opts.Authors

	rows = rows[:0]
	for i := 1; i <= opts.Authors; i++ {
		first := lo.Sample(firstNames)
		last := lo.Sample(lastNames)
		name := first + " " + last
		rows = append(rows, []any{
			i,
			name,
			fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			fmt.Sprintf("Biography of %s, a talented author with many published works.", name),
			i,
			now,
		})
	}
	if err := insertRows(ctx, builder, "authors",
		[]string{"id", "name", "email", "bio", "user_id", "created_at"}, rows); err != nil {
		return summary, err
	}
	summary.Authors = opts.Authors

	type seededBook struct {
		id    int64
		price float64
	}
	books := make([]seededBook, 0, opts.Books)
	isbns := map[string]bool{}

	rows = rows[:0]
	var pivotRows [][]any
	for i := 1; i <= opts.Books; i++ {
		price := round2(9.99 + rand.Float64()*40)
		rows = append(rows, []any{
			i,
			fmt.Sprintf("%s %d", lo.Sample(bookTitles), i),
			rand.IntN(opts.Authors) + 1,
			rand.IntN(len(publisherSeed)) + 1,
			uniqueISBN(isbns),
			price,
			rand.IntN(701) + 100,
			now.AddDate(0, 0, -rand.IntN(3651)).Format("2006-01-02"),
			now,
		})
		books = append(books, seededBook{id: int64(i), price: price})

		for _, categoryID := range lo.Samples(lo.RangeFrom(1, len(categorySeed)), rand.IntN(3)+1) {
			pivotRows = append(pivotRows, []any{i, categoryID})
		}
	}
	if err := insertRows(ctx, builder, "books",
		[]string{"id", "title", "author_id", "publisher_id", "isbn", "price", "pages", "published_date", "created_at"},
		rows); err != nil {
		return summary, err
	}
	summary.Books = opts.Books

	if err := insertRows(ctx, builder, "book_categories",
		[]string{"book_id", "category_id"}, pivotRows); err != nil {
		return summary, err
	}

	// Zero to five reviews per book.
	rows = rows[:0]
	reviewID := 0
	for i := 1; i <= opts.Books; i++ {
		for range rand.IntN(6) {
			reviewID++
			rows = append(rows, []any{
				reviewID,
				i,
				rand.IntN(opts.Authors) + 1,
				rand.IntN(5) + 1,
				lo.Sample(reviewComments),
				now.Add(-time.Duration(rand.IntN(10_000)) * time.Minute),
			})
		}
	}
	if err := insertRows(ctx, builder, "reviews",
		[]string{"id", "book_id", "reviewer_id", "rating", "comment", "created_at"}, rows); err != nil {
		return summary, err
	}
	summary.Reviews = reviewID

	// Completed orders spread across the last six months.
	rows = rows[:0]
	var itemRows [][]any
	itemID := 0
	for i := 1; i <= opts.Orders; i++ {
		var total float64
		for _, book := range lo.Samples(books, min(rand.IntN(5)+1, len(books))) {
			itemID++
			quantity := rand.IntN(3) + 1
			price := book.price * (0.8 + rand.Float64()*0.2)
			itemRows = append(itemRows, []any{itemID, i, book.id, quantity, price})
			total += float64(quantity) * price
		}
		rows = append(rows, []any{
			i,
			rand.IntN(opts.Authors) + 1,
			now.Add(-time.Duration(rand.IntN(180*24)) * time.Hour),
			OrderCompleted,
			total,
			fmt.Sprintf("%d Main St, City, State %d", rand.IntN(9900)+100, rand.IntN(90_000)+10_000),
		})
	}
	if err := insertRows(ctx, builder, "orders",
		[]string{"id", "customer_id", "order_date", "status", "total_amount", "shipping_address"}, rows); err != nil {
		return summary, err
	}
	summary.Orders = opts.Orders

	if err := insertRows(ctx, builder, "order_items",
		[]string{"id", "order_id", "book_id", "quantity", "price"}, itemRows); err != nil {
		return summary, err
	}
	summary.OrderItems = itemID

	return summary, nil
}

func clear(ctx context.Context, sess *prefetch.Session) error {
	// Child tables first, so clearing works with foreign keys enforced.
	for _, table := range []string{
		"order_items", "orders", "reviews", "book_categories",
		"books", "authors", "categories", "publishers", "users",
	} {
		if _, err := sess.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func insertRows(
	ctx context.Context,
	builder squirrel.StatementBuilderType,
	table string,
	columns []string,
	rows [][]any,
) error {
	for _, chunk := range lo.Chunk(rows, 100) {
		insert := builder.Insert(table).Columns(columns...)
		for _, row := range chunk {
			insert = insert.Values(row...)
		}
		if _, err := insert.ExecContext(ctx); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return nil
}

func uniqueISBN(seen map[string]bool) string {
	for {
		isbn := fmt.Sprintf("978%010d", rand.Int64N(10_000_000_000))
		if !seen[isbn] {
			seen[isbn] = true
			return isbn
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
