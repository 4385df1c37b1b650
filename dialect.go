package prefetch

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Dialect abstracts the SQL differences between the supported engines:
// the registered driver name, the bind placeholder style, and the handful
// of expressions that have no portable spelling.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder squirrel.PlaceholderFormat

	// MonthExpr renders an expression reducing a timestamp column to "YYYY-MM".
	MonthExpr func(col string) string
}

var SQLite = Dialect{
	Name:        "sqlite3",
	Driver:      "sqlite3",
	Placeholder: squirrel.Question,
	MonthExpr:   func(col string) string { return "strftime('%Y-%m', " + col + ")" },
}

var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "pgx",
	Placeholder: squirrel.Dollar,
	MonthExpr:   func(col string) string { return "to_char(" + col + ", 'YYYY-MM')" },
}

var MySQL = Dialect{
	Name:        "mysql",
	Driver:      "mysql",
	Placeholder: squirrel.Question,
	MonthExpr:   func(col string) string { return "DATE_FORMAT(" + col + ", '%Y-%m')" },
}

// DialectFor resolves a dialect by name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case SQLite.Name, "sqlite":
		return SQLite, nil
	case Postgres.Name, "pgx":
		return Postgres, nil
	case MySQL.Name:
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unknown dialect: %s", name)
}

// Open opens a database handle with the dialect's driver. The driver must be
// linked into the binary.
func (d Dialect) Open(dsn string) (*sql.DB, error) {
	return sql.Open(d.Driver, dsn)
}
