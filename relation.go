package prefetch

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

type (
	Resolve[M any]       func(ctx context.Context, db squirrel.BaseRunner, parents []M, fields []string) error
	FieldCheck           func(field string) error
	Binder[M, N any]     func(parents []M, children []N)
	QueryModifier[M any] func(q Query[M]) Query[M]
)

// Relation loads related rows onto a parent collection. To-one relations set
// JoinName and JoinScan: they ride on the base query as a LEFT JOIN and cost
// no extra round trip. To-many relations set Resolve: they run one secondary
// query for the whole parent collection and bind the children in memory.
type Relation[M any] struct {
	Check   FieldCheck
	Depends QueryModifier[M]

	Resolve Resolve[M]

	JoinName string
	JoinScan func(fields []string) (QueryMod, RowScan[M])
	// GroupCols join the GROUP BY clause when the base query aggregates, so
	// joined columns stay selectable under engines that enforce grouping.
	GroupCols []string
}

func (rel Relation[M]) joined() bool {
	return rel.JoinScan != nil
}

// BelongsTo resolves a to-one relation by joining the child table onto the
// base query. join names a JoinConfig registered on the parent schema.
func BelongsTo[M, N any](
	child *Schema[N],
	join string,
	assign func(*M, N),
) Relation[M] {
	return Relation[M]{
		Check:     func(field string) error { return child.Check(field) },
		JoinName:  join,
		GroupCols: []string{child.KeyCol()},
		JoinScan: func(fields []string) (QueryMod, RowScan[M]) {
			names := child.fieldNames(fields)

			mod := func(q Q, _ string) Q {
				for _, name := range names {
					q = child.Fields[name].Mod(q, child.Table)
				}
				return q
			}

			scan := func(m *M) (Ptrs, Action) {
				n := new(N)
				var (
					pointers Ptrs
					actions  []Action
				)
				for _, name := range names {
					ptr, action := child.Fields[name].RowScan(n)
					pointers = append(pointers, ptr...)
					if action != nil {
						actions = append(actions, action)
					}
				}

				return pointers, func() {
					for _, action := range actions {
						action()
					}
					assign(m, *n)
				}
			}

			return mod, scan
		},
	}
}

// HasMany resolves a to-many relation with one batched secondary query,
// regardless of how many parents were collected.
func HasMany[M, N any](
	child *Schema[N],
	belongTogether func(M, N) bool,
	assign func(*M, []N),
	wherer func(parents []M) QueryMod,
	depends []string,
) Relation[M] {
	return CreateRelation(child, BindBy(belongTogether, assign), wherer, depends)
}

func CreateRelation[M, N any](
	child *Schema[N],
	binder Binder[M, N],
	wherer func(parents []M) QueryMod,
	depends []string,
) Relation[M] {
	return Relation[M]{
		Check: func(field string) error { return child.Check(field) },
		Depends: func(q Query[M]) Query[M] {
			return q.Select(depends...)
		},
		Resolve: func(ctx context.Context, db squirrel.BaseRunner, parents []M, fields []string) error {
			if len(parents) == 0 {
				return nil
			}

			children, err := child.Query(fields...).
				ModifyQuery(wherer(parents)).
				Collect(ctx, db)
			if err != nil {
				return err
			}

			binder(parents, children)

			return nil
		},
	}
}

// pivotRow pairs a child row with the parent key it was joined through.
type pivotRow[K comparable, N any] struct {
	key  K
	item N
}

// ManyToMany resolves a to-many relation through a pivot table with one
// secondary query: the pivot is joined onto the child table and every child
// row carries its parent key out of the same result set.
func ManyToMany[M, N any, K comparable](
	child *Schema[N],
	pivot, parentCol, childCol string,
	parentID func(M) K,
	assign func(*M, []N),
	depends []string,
) Relation[M] {
	return Relation[M]{
		Check: func(field string) error { return child.Check(field) },
		Depends: func(q Query[M]) Query[M] {
			return q.Select(depends...)
		},
		Resolve: func(ctx context.Context, db squirrel.BaseRunner, parents []M, fields []string) error {
			if len(parents) == 0 {
				return nil
			}

			ids := lo.Map(parents, func(parent M, _ int) K { return parentID(parent) })
			names := child.fieldNames(fields)

			q := baseSelect(db).From(child.Table).
				Join(JoinConfig{
					Table:        pivot,
					Column:       childCol,
					ParentTable:  child.Table,
					ParentColumn: child.Key,
				}.clause()).
				Where(squirrel.Eq{TableCol(pivot, parentCol): ids})
			q = applyMods(q, child.Table, child.QueryMods)

			for _, name := range names {
				q = child.Fields[name].Mod(q, child.Table)
			}
			q = q.Column(TableCol(pivot, parentCol))

			scan := func(row *pivotRow[K, N]) (Ptrs, Action) {
				var (
					pointers Ptrs
					actions  []Action
				)
				for _, name := range names {
					ptr, action := child.Fields[name].RowScan(&row.item)
					pointers = append(pointers, ptr...)
					if action != nil {
						actions = append(actions, action)
					}
				}
				pointers = append(pointers, &row.key)

				return pointers, flattenActions(actions)
			}

			rows, err := Collect(ctx, q, scan)
			if err != nil {
				return err
			}

			grouped := map[K][]N{}
			for _, row := range rows {
				grouped[row.key] = append(grouped[row.key], row.item)
			}

			for ix := range parents {
				assign(&parents[ix], grouped[parentID(parents[ix])])
			}

			return nil
		},
	}
}

func BindBy[M, N any](
	belongTogether func(M, N) bool,
	assign func(*M, []N),
) Binder[M, N] {
	return func(parents []M, children []N) {
		for ix := range parents {
			parent := &parents[ix]
			var collection []N

			for _, child := range children {
				if !belongTogether(*parent, child) {
					continue
				}

				collection = append(collection, child)
			}

			assign(parent, collection)
		}
	}
}

func WhereIDs[M any, K any](col string, getID func(m M) K) func(parents []M) QueryMod {
	return func(parents []M) QueryMod {
		return func(q Q, table string) Q {
			return q.Where(
				squirrel.Eq{
					TableCol(table, col): lo.Map(
						parents,
						func(parent M, _ int) K { return getID(parent) },
					),
				},
			)
		}
	}
}

func DependsOn(fields ...string) []string {
	return fields
}
