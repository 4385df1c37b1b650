package prefetch

import (
	"fmt"
	"slices"
)

// JoinConfig describes a LEFT JOIN of Table onto ParentTable, named on the
// schema so that relations and aggregates sharing the same join do not
// duplicate it on the built query.
type JoinConfig struct {
	Table        string
	Column       string
	ParentTable  string
	ParentColumn string
}

func (cfg JoinConfig) clause() string {
	return fmt.Sprintf(
		"%s ON %s = %s",
		cfg.Table,
		TableCol(cfg.Table, cfg.Column),
		TableCol(cfg.ParentTable, cfg.ParentColumn),
	)
}

// Aggregate is a computed column evaluated by the database. Selecting any
// aggregate groups the base query by the schema key, so Expr must be a valid
// aggregate expression. Joins names the schema joins the expression reads
// through.
type Aggregate[T any] struct {
	Expr    string
	RowScan RowScan[T]
	Joins   []string
}

type Schema[T any] struct {
	Table      string
	Key        string
	Fields     map[string]FieldType[T]
	Relations  map[string]Relation[T]
	Aggregates map[string]Aggregate[T]
	Joins      map[string]JoinConfig
	QueryMods  []QueryMod
}

func New[T any](table, key string) *Schema[T] {
	schema := &Schema[T]{
		Table:      table,
		Key:        key,
		Fields:     map[string]FieldType[T]{},
		Relations:  map[string]Relation[T]{},
		Aggregates: map[string]Aggregate[T]{},
		Joins:      map[string]JoinConfig{},
	}

	return schema
}

func (schema *Schema[T]) AddField(
	name string,
	mod QueryMod,
	rowScan RowScan[T],
) *Schema[T] {
	schema.Fields[name] = Field(mod, rowScan)

	return schema
}

func (schema *Schema[T]) AddFieldType(name string, field FieldType[T]) *Schema[T] {
	schema.Fields[name] = field

	return schema
}

// AddSimpleField When the field name is the same as the column name and maps directly, use this.
func (schema *Schema[T]) AddSimpleField(name string, ptr func(t *T) any) *Schema[T] {
	schema = schema.AddField(name, Col(name), Ptr(ptr))

	return schema
}

func (schema *Schema[T]) AddRelation(name string, relation Relation[T]) *Schema[T] {
	schema.Relations[name] = relation

	return schema
}

func (schema *Schema[T]) AddJoin(name string, cfg JoinConfig) *Schema[T] {
	schema.Joins[name] = cfg

	return schema
}

func (schema *Schema[T]) AddAggregate(name string, agg Aggregate[T]) *Schema[T] {
	schema.Aggregates[name] = agg

	return schema
}

func (schema *Schema[T]) ModifyQuery(mod QueryMod) *Schema[T] {
	schema.QueryMods = append(schema.QueryMods, mod)

	return schema
}

func (schema *Schema[T]) Query(fields ...string) Query[T] {
	return newQuery(*schema, fields...)
}

// KeyCol returns the table-qualified key column.
func (schema *Schema[T]) KeyCol() string {
	return TableCol(schema.Table, schema.Key)
}

func (schema *Schema[T]) Check(field string) error {
	field, rest := isNested(field)

	if field == "" || field == "*" {
		return nil
	}

	if schema.hasRelation(field) {
		if err := schema.Relations[field].Check(rest); err != nil {
			return err
		}
		return nil
	}

	if schema.hasField(field) || schema.hasAggregate(field) {
		if rest != "" {
			return fmt.Errorf("%w: %s", ErrNoSuchField, field)
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrNoSuchField, field)
}

// fieldNames expands a selection into concrete field names in deterministic
// order. Empty selections and "*" expand to every field. Nested selections
// are dropped; they belong to the relation that owns them.
func (schema *Schema[T]) fieldNames(selected []string) []string {
	all := len(selected) == 0

	var names []string
	for _, name := range selected {
		if name == "*" {
			all = true
			continue
		}
		if field, rest := isNested(name); rest == "" && schema.hasField(field) {
			names = append(names, field)
		}
	}

	if all {
		names = names[:0]
		for name := range schema.Fields {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return slices.Compact(names)
}

func (schema *Schema[T]) hasRelation(name string) bool {
	_, ok := schema.Relations[name]
	return ok
}

func (schema *Schema[T]) hasField(name string) bool {
	_, ok := schema.Fields[name]
	return ok
}

func (schema *Schema[T]) hasAggregate(name string) bool {
	_, ok := schema.Aggregates[name]
	return ok
}
