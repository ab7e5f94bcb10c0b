// Package schema declares the destination tables: for every entity an ordered
// list of columns, the payload field each column is read from, and how the
// raw value is normalized.
package schema

import "fmt"

// Entity names one kind of ingested record. The value doubles as the route
// suffix (/add_<entity>) and the MQTT topic suffix.
type Entity string

const (
	Fastag          Entity = "fastag"
	VehicleRC       Entity = "vehicle_rc"
	ChallanRecord   Entity = "challan_record"
	RCBlackList     Entity = "vehicle_rc_black_list"
	ChallanAllState Entity = "vehicle_challan_all_state"
	RCChassis       Entity = "rc_chassis"
	ServiceHistory  Entity = "mahindra_service"
)

// Kind selects the normalizer applied to a field.
type Kind int

const (
	// KindText is a string column that never holds NULL.
	KindText Kind = iota
	// KindOptionalText treats an empty string like a missing value.
	KindOptionalText
	// KindPassthrough keeps the value as sent, NULL included.
	KindPassthrough
	KindDate
	KindDateTime
	KindFloat
	KindInteger
	KindFlag
	// KindList extracts one subfield from every element of a list of objects.
	KindList
	// KindStamp is filled with the processing instant.
	KindStamp
	// KindConst is filled with Field.Value.
	KindConst
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindOptionalText:
		return "optional-text"
	case KindPassthrough:
		return "passthrough"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindFloat:
		return "float"
	case KindInteger:
		return "integer"
	case KindFlag:
		return "flag"
	case KindList:
		return "list"
	case KindStamp:
		return "stamp"
	case KindConst:
		return "const"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is the storage type of a column.
type Type int

const (
	String Type = iota
	Date
	DateTime
	Float32
	Float64
	UInt8
	UInt32
	Int32
	StringArray
)

// Field describes one destination column.
type Field struct {
	Column   string
	Source   string // payload key, defaults to Column
	Sub      string // element key for KindList
	Kind     Kind
	Type     Type
	Nullable bool
	Required bool
	Value    any // KindConst only
}

// Key returns the payload key the field is read from.
func (f Field) Key() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Column
}

// From sets the payload key.
func (f Field) From(source string) Field {
	f.Source = source
	return f
}

// NotNull makes a missing value fall back to the column zero value.
func (f Field) NotNull() Field {
	f.Nullable = false
	return f
}

// Mandatory makes a missing or unparsable value reject the whole record.
func (f Field) Mandatory() Field {
	f.Required = true
	f.Nullable = false
	return f
}

// As overrides the storage type.
func (f Field) As(t Type) Field {
	f.Type = t
	return f
}

// FanOut describes a record that carries one parent identifier and a list of
// children, each child becoming one row.
type FanOut struct {
	Parent   string
	Children string
}

// Table is the declaration of one destination table.
type Table struct {
	Entity   Entity
	Name     string
	Fields   []Field
	OrderBy  []string
	Keys     []string // natural key columns, echoed back and used for duplicate checks
	FanOut   *FanOut
	Settings string
	Message  string // success acknowledgment
}

// Columns returns the ordered destination column names.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, f := range t.Fields {
		if f.Column == column {
			return i
		}
	}
	return -1
}

func text(col string) Field {
	return Field{Column: col, Kind: KindText, Type: String}
}

func optText(col string) Field {
	return Field{Column: col, Kind: KindOptionalText, Type: String, Nullable: true}
}

func raw(col string) Field {
	return Field{Column: col, Kind: KindPassthrough, Type: String, Nullable: true}
}

func date(col string) Field {
	return Field{Column: col, Kind: KindDate, Type: Date, Nullable: true}
}

func dateTime(col string) Field {
	return Field{Column: col, Kind: KindDateTime, Type: DateTime, Nullable: true}
}

func float(col string, t Type) Field {
	return Field{Column: col, Kind: KindFloat, Type: t, Nullable: true}
}

func integer(col string, t Type) Field {
	return Field{Column: col, Kind: KindInteger, Type: t, Nullable: true}
}

func flag(col string) Field {
	return Field{Column: col, Kind: KindFlag, Type: UInt8}
}

func list(source, sub string) Field {
	return Field{Column: source + "." + sub, Source: source, Sub: sub, Kind: KindList, Type: StringArray}
}

func stamp(col string) Field {
	return Field{Column: col, Kind: KindStamp, Type: DateTime}
}

func constant(col string, t Type, v any) Field {
	return Field{Column: col, Kind: KindConst, Type: t, Value: v, Nullable: v == nil}
}

func texts(cols ...string) []Field {
	out := make([]Field, len(cols))
	for i, c := range cols {
		out[i] = text(c)
	}
	return out
}

func optTexts(cols ...string) []Field {
	out := make([]Field, len(cols))
	for i, c := range cols {
		out[i] = optText(c)
	}
	return out
}

func raws(cols ...string) []Field {
	out := make([]Field, len(cols))
	for i, c := range cols {
		out[i] = raw(c)
	}
	return out
}

func dates(cols ...string) []Field {
	out := make([]Field, len(cols))
	for i, c := range cols {
		out[i] = date(c)
	}
	return out
}

func fields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func one(f ...Field) []Field { return f }
