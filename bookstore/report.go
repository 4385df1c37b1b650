package bookstore

import (
	"context"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"

	"pollex.nl/prefetch"
)

// RevenueRow is one customer-month bucket of the revenue report.
type RevenueRow struct {
	Customer       string
	Month          string
	TotalRevenue   float64
	TotalOrders    int64
	AvgCheck       float64
	IsReturning    bool
	ReturningRatio float64
}

// monthKey reduces a timestamp to the report's month bucket. Order dates are
// stored in UTC, so this matches the database-side month expression.
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyRevenueNaive loads every completed order, then the items and the
// customer of each order row by row, and buckets the revenue in application
// code: 1 + 2N queries for N orders.
func (store *Store) MonthlyRevenueNaive(ctx context.Context) ([]RevenueRow, error) {
	orders, err := Orders.Query("*").
		ModifyQuery(prefetch.WhereCol("status", OrderCompleted)).
		Collect(ctx, store.sess)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		customer string
		month    string
		revenue  float64
		orders   int64
	}
	buckets := map[int64]map[string]*bucket{}

	for ix := range orders {
		order := &orders[ix]

		items, err := OrderItems.Query("*").
			ModifyQuery(prefetch.WhereCol("order_id", order.ID)).
			Collect(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		order.Items = items

		customer, err := Users.Query("*").
			ModifyQuery(prefetch.WhereCol("id", order.CustomerID)).
			CollectOne(ctx, store.sess)
		if err != nil {
			return nil, err
		}
		order.Customer = *customer

		var total float64
		for _, item := range items {
			total += item.Subtotal()
		}

		month := monthKey(order.OrderDate)
		if buckets[order.CustomerID] == nil {
			buckets[order.CustomerID] = map[string]*bucket{}
		}
		b := buckets[order.CustomerID][month]
		if b == nil {
			b = &bucket{customer: customer.Username, month: month}
			buckets[order.CustomerID][month] = b
		}
		b.revenue += total
		b.orders++
	}

	var rows []RevenueRow
	for _, months := range buckets {
		for _, b := range months {
			rows = append(rows, RevenueRow{
				Customer:     b.customer,
				Month:        b.month,
				TotalRevenue: b.revenue,
				TotalOrders:  b.orders,
				AvgCheck:     b.revenue / float64(b.orders),
				IsReturning:  b.orders > 1,
			})
		}
	}

	fillReturningRatios(rows)
	sortRevenueRows(rows)

	return rows, nil
}

// MonthlyRevenuePlanned computes the same buckets with one grouped query:
// month and customer form the group key, revenue and order counts are
// aggregated by the database.
func (store *Store) MonthlyRevenuePlanned(ctx context.Context) ([]RevenueRow, error) {
	month := store.sess.Dialect().MonthExpr("orders.order_date")

	q := store.builder().
		Select(
			"users.username",
			month+" AS month",
			// LEFT JOIN keeps itemless orders in the report; they count as
			// orders with zero revenue, just like the application-side path.
			"COALESCE(SUM(order_items.quantity * order_items.price), 0) AS total_revenue",
			"COUNT(DISTINCT orders.id) AS total_orders",
		).
		From("orders").
		LeftJoin("order_items ON order_items.order_id = orders.id").
		Join("users ON users.id = orders.customer_id").
		Where(squirrel.Eq{"orders.status": OrderCompleted}).
		GroupBy("users.id", "users.username", "month")

	dbRows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dbRows.Close() }()

	var rows []RevenueRow
	for dbRows.Next() {
		var row RevenueRow
		if err := dbRows.Scan(&row.Customer, &row.Month, &row.TotalRevenue, &row.TotalOrders); err != nil {
			return nil, err
		}
		row.AvgCheck = row.TotalRevenue / float64(row.TotalOrders)
		row.IsReturning = row.TotalOrders > 1
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, err
	}

	fillReturningRatios(rows)
	sortRevenueRows(rows)

	return rows, nil
}

// fillReturningRatios sets, per month, the percentage of customer buckets
// with more than one order.
func fillReturningRatios(rows []RevenueRow) {
	type tally struct{ returning, total int }
	months := map[string]*tally{}

	for _, row := range rows {
		t := months[row.Month]
		if t == nil {
			t = &tally{}
			months[row.Month] = t
		}
		t.total++
		if row.IsReturning {
			t.returning++
		}
	}

	for ix := range rows {
		t := months[rows[ix].Month]
		rows[ix].ReturningRatio = float64(t.returning) / float64(t.total) * 100
	}
}

func sortRevenueRows(rows []RevenueRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].Customer < rows[j].Customer
	})
}
