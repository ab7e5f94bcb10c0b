package schema

import (
	"fmt"
	"strings"
)

// ClickHouseType returns the ClickHouse column type of f.
func ClickHouseType(f Field) string {
	var base string
	switch f.Type {
	case Date:
		base = "Date"
	case DateTime:
		base = "DateTime"
	case Float32:
		base = "Float32"
	case Float64:
		base = "Float64"
	case UInt8:
		base = "UInt8"
	case UInt32:
		base = "UInt32"
	case Int32:
		base = "Int32"
	case StringArray:
		return "Array(String)"
	default:
		base = "String"
	}
	if f.Nullable {
		return "Nullable(" + base + ")"
	}
	return base
}

// ClickHouseDDL renders an idempotent CREATE TABLE statement for t. List
// columns sharing a source are grouped into one Nested column, which
// ClickHouse exposes as the dotted array columns the rows are inserted into.
func ClickHouseDDL(t *Table) string {
	var cols []string
	for i := 0; i < len(t.Fields); i++ {
		f := t.Fields[i]
		if f.Kind != KindList {
			cols = append(cols, fmt.Sprintf("%s %s", chIdent(f.Column), ClickHouseType(f)))
			continue
		}
		var subs []string
		for ; i < len(t.Fields) && t.Fields[i].Kind == KindList && t.Fields[i].Source == f.Source; i++ {
			subs = append(subs, fmt.Sprintf("%s String", chIdent(t.Fields[i].Sub)))
		}
		i--
		cols = append(cols, fmt.Sprintf("%s Nested(%s)", chIdent(f.Source), strings.Join(subs, ", ")))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    %s\n) ENGINE = MergeTree()\nORDER BY (%s)",
		chIdent(t.Name), strings.Join(cols, ",\n    "), strings.Join(mapIdent(t.OrderBy, chIdent), ", "))
	if t.Settings != "" {
		b.WriteString("\nSETTINGS " + t.Settings)
	}
	return b.String()
}

// PostgresType returns the Postgres column type of f, without nullability.
func PostgresType(f Field) string {
	switch f.Type {
	case Date:
		return "DATE"
	case DateTime:
		return "TIMESTAMPTZ"
	case Float32:
		return "REAL"
	case Float64:
		return "DOUBLE PRECISION"
	case UInt8:
		return "SMALLINT"
	case UInt32:
		return "BIGINT"
	case Int32:
		return "INTEGER"
	case StringArray:
		return "TEXT[]"
	default:
		return "TEXT"
	}
}

// PostgresDDL renders the idempotent statements creating t and an index over
// its ordering columns.
func PostgresDDL(t *Table) []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		col := fmt.Sprintf("%s %s", PgIdent(f.Column), PostgresType(f))
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols[i] = col
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", PgIdent(t.Name), strings.Join(cols, ",\n    ")),
	}
	if len(t.OrderBy) > 0 {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			PgIdent(t.Name+"_order_idx"), PgIdent(t.Name), strings.Join(mapIdent(t.OrderBy, PgIdent), ", ")))
	}
	return stmts
}

// PgIdent quotes a Postgres identifier.
func PgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// ChIdent quotes a ClickHouse identifier.
func ChIdent(id string) string { return chIdent(id) }

func chIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "\\`") + "`" }

func mapIdent(cols []string, quote func(string) string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quote(c)
	}
	return out
}
