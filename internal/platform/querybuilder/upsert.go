package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// UpsertBuilder renders INSERT ... ON CONFLICT (...) statements from a struct
// whose exported fields carry db tags.
type UpsertBuilder struct {
	table     string
	model     any
	conflict  []string
	updates   []string
	exprs     []assignment
	doNothing bool
	returning []string
}

func Upsert(table string, model any) *UpsertBuilder {
	return &UpsertBuilder{table: table, model: model}
}

func (b *UpsertBuilder) OnConflict(columns ...string) *UpsertBuilder {
	b.conflict = append(b.conflict, columns...)
	return b
}

// DoUpdate overwrites the listed columns with the incoming row values.
func (b *UpsertBuilder) DoUpdate(columns ...string) *UpsertBuilder {
	b.updates = append(b.updates, columns...)
	return b
}

// DoUpdateExpr assigns a raw expression on conflict, e.g. NOW() or a COALESCE
// over EXCLUDED and the current row.
func (b *UpsertBuilder) DoUpdateExpr(column, expr string) *UpsertBuilder {
	b.exprs = append(b.exprs, assignment{column: column, expr: &rawExpr{expr: expr}})
	return b
}

// DoNothing keeps the stored row untouched; RETURNING then yields no row on conflict.
func (b *UpsertBuilder) DoNothing() *UpsertBuilder {
	b.doNothing = true
	return b
}

func (b *UpsertBuilder) Returning(columns ...string) *UpsertBuilder {
	b.returning = append(b.returning, columns...)
	return b
}

func (b *UpsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("upsert table is required")
	}
	if len(b.conflict) == 0 {
		return "", nil, fmt.Errorf("upsert conflict target is required")
	}
	if !b.doNothing && len(b.updates) == 0 && len(b.exprs) == 0 {
		return "", nil, fmt.Errorf("upsert needs DoUpdate or DoNothing")
	}

	cols, vals, err := columnsAndValues(b.model)
	if err != nil {
		return "", nil, err
	}

	var buf strings.Builder
	buf.WriteString("INSERT INTO ")
	buf.WriteString(b.table)
	buf.WriteString(" (")
	buf.WriteString(strings.Join(cols, ", "))
	buf.WriteString(") VALUES (")

	args := make([]any, 0, len(vals))
	argIndex := 1
	for i, v := range vals {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeArg(&buf, &args, &argIndex, v)
	}
	buf.WriteString(") ON CONFLICT (")
	buf.WriteString(strings.Join(b.conflict, ", "))
	buf.WriteString(")")

	if b.doNothing {
		buf.WriteString(" DO NOTHING")
	} else {
		buf.WriteString(" DO UPDATE SET ")
		parts := make([]string, 0, len(b.updates)+len(b.exprs))
		for _, col := range b.updates {
			parts = append(parts, col+" = EXCLUDED."+col)
		}
		for _, e := range b.exprs {
			parts = append(parts, e.column+" = "+e.expr.expr)
		}
		buf.WriteString(strings.Join(parts, ", "))
	}

	if len(b.returning) > 0 {
		buf.WriteString(" RETURNING ")
		buf.WriteString(strings.Join(b.returning, ", "))
	}

	return buf.String(), args, nil
}

func columnsAndValues(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col := strings.TrimSpace(strings.Split(field.Tag.Get("db"), ",")[0])
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
