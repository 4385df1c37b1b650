package bookstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate is the demo schema. Relationship columns are NOT NULL so that every
// book always references an existing author and publisher, and deletes
// cascade down the relationship declarations.
const Migrate = `
	create table if not exists users (
		id integer primary key,
		username text not null unique,
		email text not null
	);
	create table if not exists authors (
		id integer primary key,
		name text not null,
		email text not null,
		bio text not null,
		user_id integer not null references users (id) on delete cascade,
		created_at datetime not null
	);
	create table if not exists publishers (
		id integer primary key,
		name text not null,
		address text not null,
		website text not null
	);
	create table if not exists categories (
		id integer primary key,
		name text not null unique,
		description text not null
	);
	create table if not exists books (
		id integer primary key,
		title text not null,
		author_id integer not null references authors (id) on delete cascade,
		publisher_id integer not null references publishers (id) on delete cascade,
		isbn text not null unique,
		price real not null,
		pages integer not null,
		published_date text not null,
		created_at datetime not null
	);
	create table if not exists book_categories (
		book_id integer not null references books (id) on delete cascade,
		category_id integer not null references categories (id) on delete cascade
	);
	create table if not exists reviews (
		id integer primary key,
		book_id integer not null references books (id) on delete cascade,
		reviewer_id integer not null references users (id) on delete cascade,
		rating integer not null,
		comment text not null,
		created_at datetime not null
	);
	create table if not exists orders (
		id integer primary key,
		customer_id integer not null references users (id) on delete cascade,
		order_date datetime not null,
		status text not null,
		total_amount real not null,
		shipping_address text not null
	);
	create table if not exists order_items (
		id integer primary key,
		order_id integer not null references orders (id) on delete cascade,
		book_id integer not null references books (id) on delete cascade,
		quantity integer not null,
		price real not null
	);
	`

// ApplySchema creates the demo tables when they do not exist yet. Statements
// run one by one, as not every driver accepts multi-statement execs.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Migrate, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
