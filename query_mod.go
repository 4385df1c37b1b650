package prefetch

import "github.com/Masterminds/squirrel"

type (
	Q        = squirrel.SelectBuilder
	QueryMod func(q Q, table string) Q
)

func Col(names ...string) QueryMod {
	return func(q Q, table string) Q {
		for _, name := range names {
			q = q.Column(TableCol(table, name))
		}
		return q
	}
}

// ColExpr adds a raw column expression, e.g. "COUNT(books.id)".
func ColExpr(expr string) QueryMod {
	return func(q Q, _ string) Q { return q.Column(expr) }
}

func Where(pred any, args ...any) QueryMod {
	return func(q Q, _ string) Q { return q.Where(pred, args...) }
}

// WhereCol filters on a column of the running table.
func WhereCol(name string, value any) QueryMod {
	return func(q Q, table string) Q {
		return q.Where(squirrel.Eq{TableCol(table, name): value})
	}
}

func OrderBy(clauses ...string) QueryMod {
	return func(q Q, _ string) Q { return q.OrderBy(clauses...) }
}

func Limit(n uint64) QueryMod {
	return func(q Q, _ string) Q { return q.Limit(n) }
}

func TableCol(table, name string) string {
	if table == "" {
		return name
	}
	return table + "." + name
}

func applyMods(q Q, table string, mods []QueryMod) Q {
	for _, mod := range mods {
		q = mod(q, table)
	}

	return q
}
