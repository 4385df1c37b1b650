package prefetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

var (
	// ErrNoSuchField is returned when there is no field, aggregate or relation with that name.
	ErrNoSuchField = errors.New("field does not exist")
	// ErrNoSuchRelation is returned only when trying to select a nested field on a relation that does not exist.
	ErrNoSuchRelation = errors.New("relation does not exist")
	// ErrNoSuchJoin is returned when a relation or aggregate names a join the schema never registered.
	ErrNoSuchJoin = errors.New("join does not exist")
	// ErrTooManyResults is returned when CollectOne is called but returned many models
	ErrTooManyResults = errors.New("too many results for CollectOne")
)

type Query[T any] struct {
	schema Schema[T]

	selectedFields         map[string]FieldType[T]
	selectedRelations      map[string]Relation[T]
	selectedRelationFields map[string][]string
	selectedAggregates     map[string]Aggregate[T]
	tableAlias             string
	queryMods              []QueryMod

	errors []error
}

func newQuery[T any](schema Schema[T], fields ...string) Query[T] {
	query := Query[T]{
		schema:                 schema,
		selectedFields:         map[string]FieldType[T]{},
		selectedRelations:      map[string]Relation[T]{},
		selectedRelationFields: map[string][]string{},
		selectedAggregates:     map[string]Aggregate[T]{},
		tableAlias:             schema.Table,
		queryMods:              []QueryMod{},
		errors:                 []error{},
	}

	return query.Select(fields...)
}

func (query Query[T]) ModifyQuery(mod QueryMod) Query[T] {
	query.queryMods = append(query.queryMods, mod)

	return query
}

func (query Query[T]) Select(fieldNames ...string) Query[T] {
	if len(fieldNames) == 0 {
		query.selectAllFields()
		return query
	}

	for _, name := range fieldNames {
		query.resolveSelect(name)
	}

	return query
}

func (query *Query[T]) resolveSelect(name string) {
	field, rest := isNested(name)

	if field == "*" {
		if rest != "" {
			query.addError(fmt.Errorf("%w: %s", ErrNoSuchRelation, field))
			return
		}

		query.selectAllFields()
		return
	}

	if query.schema.hasRelation(field) {
		if rest != "" && rest != "*" {
			// Validate the chosen nested field.
			if err := query.schema.Relations[field].Check(rest); err != nil {
				query.addError(err)
				return
			}
		}
		query.selectRelation(field, rest)
		return
	}

	if query.schema.hasField(field) {
		// Fields cannot have nesting
		if rest != "" {
			query.addError(fmt.Errorf("%w: %s", ErrNoSuchRelation, field))
			return
		}
		query.selectField(field)
		return
	}

	if query.schema.hasAggregate(field) {
		if rest != "" {
			query.addError(fmt.Errorf("%w: %s", ErrNoSuchRelation, field))
			return
		}
		query.selectedAggregates[field] = query.schema.Aggregates[field]
		return
	}

	// Error
	query.addError(fmt.Errorf("%w: %s", ErrNoSuchField, field))
}

func (query *Query[T]) selectAllFields() {
	for name := range query.schema.Fields {
		query.selectedFields[name] = query.schema.Fields[name]
	}
}

func (query *Query[T]) selectField(name string) {
	query.selectedFields[name] = query.schema.Fields[name]
}

func (query *Query[T]) selectRelation(relName, relField string) {
	if relField == "" {
		relField = "*"
	}

	query.selectedRelations[relName] = query.schema.Relations[relName]

	if query.selectedRelationFields[relName] == nil {
		query.selectedRelationFields[relName] = []string{}
	}

	query.selectedRelationFields[relName] = append(query.selectedRelationFields[relName], relField)
}

// =================
// Finishers
// =================

func (query Query[T]) Err() error {
	return errors.Join(query.errors...)
}

func (query Query[T]) Collect(ctx context.Context, db squirrel.BaseRunner) ([]T, error) {
	if err := query.Err(); err != nil {
		return nil, err
	}

	parents, err := query.collectBase(ctx, db)
	if err != nil {
		return nil, err
	}

	if err := query.resolveRelations(ctx, db, parents); err != nil {
		return nil, err
	}

	return parents, nil
}

func (query Query[T]) CollectOne(ctx context.Context, db squirrel.BaseRunner) (*T, error) {
	if err := query.Err(); err != nil {
		return nil, err
	}

	parents, err := query.collectBase(ctx, db)
	if err != nil {
		return nil, err
	}

	if len(parents) == 0 {
		return nil, sql.ErrNoRows
	} else if len(parents) > 1 {
		return nil, ErrTooManyResults
	}

	if err := query.resolveRelations(ctx, db, parents); err != nil {
		return nil, err
	}

	return &parents[0], nil
}

func (query Query[T]) collectBase(
	ctx context.Context,
	db squirrel.BaseRunner,
) ([]T, error) {
	q := baseSelect(db).From(query.schema.Table)

	// Apply schema mods
	q = applyMods(q, query.tableAlias, query.schema.QueryMods)
	// Apply runtime mods
	q = applyMods(q, query.tableAlias, query.queryMods)

	// Add relation field dependencies
	for _, rel := range query.selectedRelations {
		if rel.Depends != nil {
			query = rel.Depends(query)
		}
	}

	// Collapse fields
	var scans []RowScan[T]
	for _, name := range sortedKeys(query.selectedFields) {
		field := query.selectedFields[name]
		q = field.Mod(q, query.tableAlias)
		scans = append(scans, field.RowScan)
	}

	// Joined to-one relations ride on the base query.
	applied := map[string]bool{}
	groupCols := []string{query.schema.KeyCol()}
	for _, name := range sortedKeys(query.selectedRelations) {
		rel := query.selectedRelations[name]
		if !rel.joined() {
			continue
		}

		var err error
		q, err = query.applyJoin(q, rel.JoinName, applied)
		if err != nil {
			return nil, err
		}

		mod, scan := rel.JoinScan(query.selectedRelationFields[name])
		q = mod(q, "")
		scans = append(scans, scan)
		groupCols = append(groupCols, rel.GroupCols...)
	}

	// Aggregates group the whole query by the schema key.
	if len(query.selectedAggregates) > 0 {
		for _, name := range sortedKeys(query.selectedAggregates) {
			agg := query.selectedAggregates[name]
			for _, join := range agg.Joins {
				var err error
				q, err = query.applyJoin(q, join, applied)
				if err != nil {
					return nil, err
				}
			}
			q = q.Column(agg.Expr)
			scans = append(scans, agg.RowScan)
		}
		q = q.GroupBy(groupCols...)
	}

	// Execute query
	parents, err := Collect(ctx, q, flattenRowScan(scans))
	if err != nil {
		return nil, err
	}

	return parents, nil
}

func (query Query[T]) applyJoin(q Q, name string, applied map[string]bool) (Q, error) {
	if applied[name] {
		return q, nil
	}

	cfg, ok := query.schema.Joins[name]
	if !ok {
		return q, fmt.Errorf("%w: %s", ErrNoSuchJoin, name)
	}

	applied[name] = true

	return q.LeftJoin(cfg.clause()), nil
}

func (query Query[T]) resolveRelations(
	ctx context.Context,
	db squirrel.BaseRunner,
	parents []T,
) error {
	for name, relation := range query.selectedRelations {
		if relation.Resolve == nil {
			continue
		}

		err := relation.Resolve(
			ctx,
			db,
			parents,
			query.selectedRelationFields[name],
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// =================
// Utilities
// =================

func (query *Query[T]) addError(err error) {
	query.errors = append(query.errors, err)
}

func isNested(name string) (string, string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 1 {
		return name, ""
	}
	return parts[0], parts[1]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
