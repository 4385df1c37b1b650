package bookstore

import (
	"pollex.nl/prefetch"
)

// Schemas for the demo entities. Table names follow the model names; the
// relationships mirror the data model: a book belongs to an author and a
// publisher, carries categories through a pivot table and collects reviews,
// each review written by a user.
var (
	Users = prefetch.New[User](prefetch.TableName("User"), "id").
		AddSimpleField("id", func(t *User) any { return &t.ID }).
		AddSimpleField("username", func(t *User) any { return &t.Username }).
		AddSimpleField("email", func(t *User) any { return &t.Email })

	Publishers = prefetch.New[Publisher](prefetch.TableName("Publisher"), "id").
			AddSimpleField("id", func(t *Publisher) any { return &t.ID }).
			AddSimpleField("name", func(t *Publisher) any { return &t.Name }).
			AddSimpleField("address", func(t *Publisher) any { return &t.Address }).
			AddSimpleField("website", func(t *Publisher) any { return &t.Website })

	Categories = prefetch.New[Category](prefetch.TableName("Category"), "id").
			AddSimpleField("id", func(t *Category) any { return &t.ID }).
			AddSimpleField("name", func(t *Category) any { return &t.Name }).
			AddSimpleField("description", func(t *Category) any { return &t.Description }).
			ModifyQuery(prefetch.OrderBy("categories.name", "categories.id"))

	Reviews = prefetch.New[Review](prefetch.TableName("Review"), "id").
		AddSimpleField("id", func(t *Review) any { return &t.ID }).
		AddSimpleField("book_id", func(t *Review) any { return &t.BookID }).
		AddSimpleField("reviewer_id", func(t *Review) any { return &t.ReviewerID }).
		AddSimpleField("rating", func(t *Review) any { return &t.Rating }).
		AddSimpleField("comment", func(t *Review) any { return &t.Comment }).
		AddSimpleField("created_at", func(t *Review) any { return &t.CreatedAt }).
		ModifyQuery(prefetch.OrderBy("reviews.created_at DESC", "reviews.id")).
		AddJoin("reviewer", prefetch.JoinConfig{
			Table:        "users",
			Column:       "id",
			ParentTable:  "reviews",
			ParentColumn: "reviewer_id",
		}).
		AddRelation("reviewer",
			prefetch.BelongsTo(Users, "reviewer",
				func(review *Review, reviewer User) { review.Reviewer = reviewer },
			),
		)

	Books = prefetch.New[Book](prefetch.TableName("Book"), "id").
		AddSimpleField("id", func(t *Book) any { return &t.ID }).
		AddSimpleField("title", func(t *Book) any { return &t.Title }).
		AddSimpleField("author_id", func(t *Book) any { return &t.AuthorID }).
		AddSimpleField("publisher_id", func(t *Book) any { return &t.PublisherID }).
		AddSimpleField("isbn", func(t *Book) any { return &t.ISBN }).
		AddSimpleField("price", func(t *Book) any { return &t.Price }).
		AddSimpleField("pages", func(t *Book) any { return &t.Pages }).
		AddSimpleField("published_date", func(t *Book) any { return &t.PublishedDate }).
		AddSimpleField("created_at", func(t *Book) any { return &t.CreatedAt }).
		ModifyQuery(prefetch.OrderBy("books.published_date DESC", "books.id")).
		AddJoin("publisher", prefetch.JoinConfig{
			Table:        "publishers",
			Column:       "id",
			ParentTable:  "books",
			ParentColumn: "publisher_id",
		}).
		AddRelation("publisher",
			prefetch.BelongsTo(Publishers, "publisher",
				func(book *Book, publisher Publisher) { book.Publisher = publisher },
			),
		).
		AddRelation("categories",
			prefetch.ManyToMany(Categories, prefetch.TableName("BookCategory"), "book_id", "category_id",
				func(book Book) int64 { return book.ID },
				func(book *Book, categories []Category) { book.Categories = categories },
				prefetch.DependsOn("id"),
			),
		).
		AddRelation("reviews",
			prefetch.HasMany(Reviews,
				func(book Book, review Review) bool { return review.BookID == book.ID },
				func(book *Book, reviews []Review) { book.Reviews = reviews },
				prefetch.WhereIDs("book_id", func(book Book) int64 { return book.ID }),
				prefetch.DependsOn("id", "reviews.book_id"),
			),
		)

	Authors = prefetch.New[Author](prefetch.TableName("Author"), "id").
		AddSimpleField("id", func(t *Author) any { return &t.ID }).
		AddSimpleField("name", func(t *Author) any { return &t.Name }).
		AddSimpleField("email", func(t *Author) any { return &t.Email }).
		AddSimpleField("bio", func(t *Author) any { return &t.Bio }).
		AddSimpleField("user_id", func(t *Author) any { return &t.UserID }).
		AddSimpleField("created_at", func(t *Author) any { return &t.CreatedAt }).
		ModifyQuery(prefetch.OrderBy("authors.name", "authors.id")).
		AddJoin("user", prefetch.JoinConfig{
			Table:        "users",
			Column:       "id",
			ParentTable:  "authors",
			ParentColumn: "user_id",
		}).
		AddJoin("books", prefetch.JoinConfig{
			Table:        "books",
			Column:       "author_id",
			ParentTable:  "authors",
			ParentColumn: "id",
		}).
		AddJoin("reviews", prefetch.JoinConfig{
			Table:        "reviews",
			Column:       "book_id",
			ParentTable:  "books",
			ParentColumn: "id",
		}).
		AddAggregate("book_count", prefetch.Aggregate[Author]{
			Expr:    "COUNT(DISTINCT books.id)",
			RowScan: prefetch.Ptr(func(t *Author) any { return &t.BookCount }),
			Joins:   []string{"books"},
		}).
		AddAggregate("avg_rating", prefetch.Aggregate[Author]{
			Expr:    "AVG(reviews.rating)",
			RowScan: prefetch.NullFloat(func(t *Author, v float64) { t.AvgRating = v }),
			Joins:   []string{"books", "reviews"},
		}).
		AddRelation("user",
			prefetch.BelongsTo(Users, "user",
				func(author *Author, user User) { author.User = user },
			),
		)

	OrderItems = prefetch.New[OrderItem](prefetch.TableName("OrderItem"), "id").
			AddSimpleField("id", func(t *OrderItem) any { return &t.ID }).
			AddSimpleField("order_id", func(t *OrderItem) any { return &t.OrderID }).
			AddSimpleField("book_id", func(t *OrderItem) any { return &t.BookID }).
			AddSimpleField("quantity", func(t *OrderItem) any { return &t.Quantity }).
			AddSimpleField("price", func(t *OrderItem) any { return &t.Price }).
			ModifyQuery(prefetch.OrderBy("order_items.order_id", "order_items.id"))

	Orders = prefetch.New[Order](prefetch.TableName("Order"), "id").
		AddSimpleField("id", func(t *Order) any { return &t.ID }).
		AddSimpleField("customer_id", func(t *Order) any { return &t.CustomerID }).
		AddSimpleField("order_date", func(t *Order) any { return &t.OrderDate }).
		AddSimpleField("status", func(t *Order) any { return &t.Status }).
		AddSimpleField("total_amount", func(t *Order) any { return &t.TotalAmount }).
		AddSimpleField("shipping_address", func(t *Order) any { return &t.ShippingAddress }).
		ModifyQuery(prefetch.OrderBy("orders.order_date DESC", "orders.id")).
		AddJoin("customer", prefetch.JoinConfig{
			Table:        "users",
			Column:       "id",
			ParentTable:  "orders",
			ParentColumn: "customer_id",
		}).
		AddRelation("customer",
			prefetch.BelongsTo(Users, "customer",
				func(order *Order, customer User) { order.Customer = customer },
			),
		).
		AddRelation("items",
			prefetch.HasMany(OrderItems,
				func(order Order, item OrderItem) bool { return item.OrderID == order.ID },
				func(order *Order, items []OrderItem) { order.Items = items },
				prefetch.WhereIDs("order_id", func(order Order) int64 { return order.ID }),
				prefetch.DependsOn("id", "items.order_id"),
			),
		)
)

// The author/book relations reference each other, so the backrefs are wired
// up here instead of in the var block.
func init() {
	Books.
		AddJoin("author", prefetch.JoinConfig{
			Table:        "authors",
			Column:       "id",
			ParentTable:  "books",
			ParentColumn: "author_id",
		}).
		AddRelation("author",
			prefetch.BelongsTo(Authors, "author",
				func(book *Book, author Author) { book.Author = author },
			),
		)

	Authors.AddRelation("books",
		prefetch.HasMany(Books,
			func(author Author, book Book) bool { return book.AuthorID == author.ID },
			func(author *Author, books []Book) { author.Books = books },
			prefetch.WhereIDs("author_id", func(author Author) int64 { return author.ID }),
			prefetch.DependsOn("id", "books.author_id"),
		),
	)
}
