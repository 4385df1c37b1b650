package bookstore

import "time"

type User struct {
	ID       int64
	Username string
	Email    string
}

type Author struct {
	ID        int64
	Name      string
	Email     string
	Bio       string
	UserID    int64
	CreatedAt time.Time

	User  User
	Books []Book

	// Filled by aggregation or by counting in application code.
	BookCount int64
	AvgRating float64
}

type Publisher struct {
	ID      int64
	Name    string
	Address string
	Website string
}

type Category struct {
	ID          int64
	Name        string
	Description string
}

type Book struct {
	ID            int64
	Title         string
	AuthorID      int64
	PublisherID   int64
	ISBN          string
	Price         float64
	Pages         int64
	PublishedDate string
	CreatedAt     time.Time

	Author     Author
	Publisher  Publisher
	Categories []Category
	Reviews    []Review
}

type Review struct {
	ID         int64
	BookID     int64
	ReviewerID int64
	Rating     int64
	Comment    string
	CreatedAt  time.Time

	Reviewer User
}

const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID              int64
	CustomerID      int64
	OrderDate       time.Time
	Status          string
	TotalAmount     float64
	ShippingAddress string

	Customer User
	Items    []OrderItem
}

type OrderItem struct {
	ID       int64
	OrderID  int64
	BookID   int64
	Quantity int64
	Price    float64
}

// Subtotal is the line total of the item.
func (item OrderItem) Subtotal() float64 {
	return float64(item.Quantity) * item.Price
}
