// Command bookdemo serves the bookstore demo API and seeds its database.
//
// Configuration comes from the environment:
//
//	BOOKDEMO_ADDR           listen address, default :8000
//	BOOKDEMO_DRIVER         sqlite3, postgres or mysql, default sqlite3
//	BOOKDEMO_DSN            driver-specific connection string
//	BOOKDEMO_DEBUG          log every SQL statement when truthy
//	BOOKDEMO_ALLOWED_HOSTS  comma-separated host allow list, empty allows all
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"pollex.nl/prefetch"
	"pollex.nl/prefetch/bookstore"
	"pollex.nl/prefetch/web"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(os.Args[2:])
	case "seed":
		err = seed(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, bookstore.ErrBadSeedCount) {
			fmt.Fprintln(os.Stderr, "bookdemo:", err)
			os.Exit(2)
		}
		slog.Error("bookdemo failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: bookdemo <command>

commands:
  serve   run the demo API server
  seed    wipe and repopulate the database`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openDB(ctx context.Context) (*sql.DB, prefetch.Dialect, error) {
	driver := envOr("BOOKDEMO_DRIVER", "sqlite3")

	dialect, err := prefetch.DialectFor(driver)
	if err != nil {
		return nil, prefetch.Dialect{}, err
	}

	dsn := envOr("BOOKDEMO_DSN", "file:bookdemo.db?cache=shared")
	db, err := dialect.Open(dsn)
	if err != nil {
		return nil, prefetch.Dialect{}, fmt.Errorf("open %s: %w", driver, err)
	}

	// The bundled DDL is written for SQLite; other backends bring their own
	// schema management.
	if dialect.Driver == prefetch.SQLite.Driver {
		if err := bookstore.ApplySchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, prefetch.Dialect{}, err
		}
	}

	return db, dialect, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serve(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	debug, _ := strconv.ParseBool(os.Getenv("BOOKDEMO_DEBUG"))
	logger := newLogger(debug)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, dialect, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cfg := web.Config{
		Addr:  envOr("BOOKDEMO_ADDR", ":8000"),
		Debug: debug,
	}
	if hosts := os.Getenv("BOOKDEMO_ALLOWED_HOSTS"); hosts != "" {
		for _, host := range strings.Split(hosts, ",") {
			if host = strings.TrimSpace(host); host != "" {
				cfg.AllowedHosts = append(cfg.AllowedHosts, host)
			}
		}
	}

	server := web.NewServer(db, dialect, logger, cfg)

	logger.Info("serving bookstore demo",
		"addr", cfg.Addr,
		"driver", dialect.Driver,
		"debug", debug,
	)

	return http.ListenAndServe(cfg.Addr, server.Handler())
}

func seed(args []string) error {
	flags := flag.NewFlagSet("seed", flag.ExitOnError)
	authors := flags.Int("authors", 20, "number of authors (and user accounts)")
	books := flags.Int("books", 100, "number of books")
	orders := flags.Int("orders", 200, "number of completed orders")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	db, dialect, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	summary, err := bookstore.Seed(ctx, prefetch.NewSession(db, dialect), bookstore.SeedOpts{
		Authors: *authors,
		Books:   *books,
		Orders:  *orders,
	})
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render("Successfully populated the database."))
	for _, line := range []struct {
		label string
		count int
	}{
		{"categories", summary.Categories},
		{"publishers", summary.Publishers},
		{"users", summary.Users},
		{"authors", summary.Authors},
		{"books", summary.Books},
		{"reviews", summary.Reviews},
		{"orders", summary.Orders},
		{"order items", summary.OrderItems},
	} {
		fmt.Printf("  %s %d\n", labelStyle.Render(fmt.Sprintf("%-12s", line.label)), line.count)
	}

	return nil
}
