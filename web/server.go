// Package web exposes the bookstore as a JSON API with every view in two
// flavors: an inefficient one that queries row by row and an optimized one
// that loads the same data in a fixed number of queries. Each response
// reports how many queries the view issued.
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"pollex.nl/prefetch"
	"pollex.nl/prefetch/bookstore"
)

type Config struct {
	Addr         string
	Debug        bool
	AllowedHosts []string
}

type Server struct {
	db      *sql.DB
	dialect prefetch.Dialect
	logger  *slog.Logger
	cfg     Config
}

func NewServer(db *sql.DB, dialect prefetch.Dialect, logger *slog.Logger, cfg Config) *Server {
	return &Server{db: db, dialect: dialect, logger: logger, cfg: cfg}
}

// page is the response envelope of every view.
type page struct {
	View        string `json:"view"`
	Description string `json:"description"`
	Queries     int64  `json:"queries"`
	Data        any    `json:"data"`
}

type route struct {
	pattern     string
	description string
	load        func(ctx context.Context, store *bookstore.Store) (any, error)
}

func (s *Server) routes() []route {
	return []route{
		{
			"/inefficient/books/",
			"Book listing resolving author, publisher and categories per book.",
			func(ctx context.Context, store *bookstore.Store) (any, error) { return store.BooksNaive(ctx) },
		},
		{
			"/optimized/books/",
			"Book listing with joined author and publisher and one category batch.",
			func(ctx context.Context, store *bookstore.Store) (any, error) { return store.BooksPlanned(ctx) },
		},
		{
			"/inefficient/authors/",
			"Author listing resolving the user account and books per author.",
			func(ctx context.Context, store *bookstore.Store) (any, error) { return store.AuthorsNaive(ctx) },
		},
		{
			"/optimized/authors/",
			"Author listing with joined user, annotated book count and one book batch.",
			func(ctx context.Context, store *bookstore.Store) (any, error) { return store.AuthorsPlanned(ctx) },
		},
		{
			"/inefficient/books-reviews/",
			"Books with reviews, resolving each review's reviewer separately.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.BooksWithReviewsNaive(ctx)
			},
		},
		{
			"/optimized/books-reviews/",
			"Books with reviews loaded in one batch that joins the reviewer.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.BooksWithReviewsPlanned(ctx)
			},
		},
		{
			"/inefficient/authors-stats/",
			"Author statistics computed with one COUNT and one AVG query per author.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.AuthorStatsNaive(ctx)
			},
		},
		{
			"/optimized/authors-stats/",
			"Author statistics pushed down into aggregate columns on one query.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.AuthorStatsPlanned(ctx)
			},
		},
		{
			"/inefficient/revenue-report/",
			"Monthly revenue report bucketing orders in application code.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.MonthlyRevenueNaive(ctx)
			},
		},
		{
			"/optimized/revenue-report/",
			"Monthly revenue report as a single grouped query.",
			func(ctx context.Context, store *bookstore.Store) (any, error) {
				return store.MonthlyRevenuePlanned(ctx)
			},
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	routes := s.routes()
	mux.HandleFunc("GET /{$}", s.handleIndex(routes))
	for _, rt := range routes {
		mux.Handle("GET "+rt.pattern+"{$}", s.view(rt))
	}

	var handler http.Handler = mux
	handler = accessLog(s.logger, handler)
	handler = requestID(handler)
	handler = allowHosts(s.cfg.AllowedHosts, handler)

	return handler
}

// view runs the route's loader on a fresh session so the reported query
// count covers exactly one request.
func (s *Server) view(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := prefetch.NewSession(s.db, s.dialect)
		if s.cfg.Debug {
			sess = sess.WithLogger(s.logger)
		}

		data, err := rt.load(r.Context(), bookstore.NewStore(sess))
		if err != nil {
			s.logger.Error("view failed",
				"view", rt.pattern,
				"request_id", w.Header().Get(requestIDHeader),
				"error", err,
			)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		s.writeJSON(w, http.StatusOK, page{
			View:        rt.pattern,
			Description: rt.description,
			Queries:     sess.Queries(),
			Data:        data,
		})
	}
}

func (s *Server) handleIndex(routes []route) http.HandlerFunc {
	type entry struct {
		Path        string `json:"path"`
		Description string `json:"description"`
	}
	entries := make([]entry, 0, len(routes))
	for _, rt := range routes {
		entries = append(entries, entry{Path: rt.pattern, Description: rt.description})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"name":   "bookstore query demo",
			"routes": entries,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
