// Package projector turns a loosely-typed payload into a row aligned to the
// column order of its destination table.
package projector

import (
	"fmt"
	"math"
	"time"

	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/normalize"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// epoch is what a non-nullable date column receives when the value is absent.
var epoch = time.Unix(0, 0).UTC()

// MandatoryFieldError reports a mandatory field that is missing or could not
// be normalized.
type MandatoryFieldError struct {
	Table string
	Field string
	Kind  schema.Kind
}

func (e *MandatoryFieldError) Error() string {
	return fmt.Sprintf("%s must be %s", e.Field, acceptedFormats(e.Kind))
}

func acceptedFormats(k schema.Kind) string {
	switch k {
	case schema.KindDateTime:
		return "'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DDTHH:MM:SS' (optionally with Z or +HH:MM)"
	case schema.KindDate:
		return "'YYYY-MM-DD', 'DD/MM/YYYY' or 'YYYY/MM/DD'"
	default:
		return "a valid " + k.String() + " value"
	}
}

// Projector builds rows. Now supplies the processing instant stamped into
// created_on/updated_on style columns.
type Projector struct {
	Now func() time.Time
}

// New returns a Projector using the wall clock.
func New() *Projector {
	return &Projector{Now: time.Now}
}

func (p *Projector) now() time.Time {
	now := time.Now
	if p != nil && p.Now != nil {
		now = p.Now
	}
	return now().UTC().Truncate(time.Second)
}

// Project builds the single row for rec.
func (p *Projector) Project(t *schema.Table, rec models.Payload) ([]any, error) {
	return project(t, rec, p.now())
}

// ProjectBatch builds every row rec produces. Fan-out tables produce one row
// per child, each carrying the parent identifier; a record without children
// produces no rows. Other tables produce exactly one row.
func (p *Projector) ProjectBatch(t *schema.Table, rec models.Payload) ([][]any, error) {
	now := p.now()
	if t.FanOut == nil {
		row, err := project(t, rec, now)
		if err != nil {
			return nil, err
		}
		return [][]any{row}, nil
	}

	parent := rec.Get(t.FanOut.Parent)
	children := rec.Children(t.FanOut.Children)
	rows := make([][]any, 0, len(children))
	for _, child := range children {
		row, err := project(t, child.With(t.FanOut.Parent, parent), now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func project(t *schema.Table, rec models.Payload, now time.Time) ([]any, error) {
	row := make([]any, len(t.Fields))
	for i, f := range t.Fields {
		v, ok := value(f, rec, now)
		if ok {
			row[i] = v
			continue
		}
		switch {
		case f.Required:
			return nil, &MandatoryFieldError{Table: t.Name, Field: f.Key(), Kind: f.Kind}
		case f.Nullable:
			row[i] = nil
		default:
			row[i] = zero(f.Type)
		}
	}
	return row, nil
}

// value normalizes the raw value of f. ok=false means absent.
func value(f schema.Field, rec models.Payload, now time.Time) (any, bool) {
	raw := rec.Get(f.Key())
	switch f.Kind {
	case schema.KindConst:
		return f.Value, f.Value != nil
	case schema.KindStamp:
		return now, true
	case schema.KindList:
		return FlattenColumns(raw, f.Sub)[0], true
	case schema.KindText, schema.KindPassthrough:
		return normalize.Text(raw)
	case schema.KindOptionalText:
		s, ok := normalize.Text(raw)
		return s, ok && s != ""
	case schema.KindDate:
		return normalize.Date(raw)
	case schema.KindDateTime:
		return normalize.DateTime(raw)
	case schema.KindFlag:
		return normalize.Flag(raw), true
	case schema.KindInteger:
		n, ok := normalize.Int(raw)
		if !ok {
			return nil, false
		}
		return fitInt(n, f.Type)
	case schema.KindFloat:
		x, ok := normalize.Float(raw)
		if !ok {
			return nil, false
		}
		if f.Type == schema.Float32 {
			return float32(x), true
		}
		return x, true
	default:
		return nil, false
	}
}

// fitInt converts n to the Go type of the column, treating values the column
// cannot hold as absent.
func fitInt(n int64, t schema.Type) (any, bool) {
	switch t {
	case schema.UInt8:
		if n < 0 || n > math.MaxUint8 {
			return nil, false
		}
		return uint8(n), true
	case schema.UInt32:
		if n < 0 || n > math.MaxUint32 {
			return nil, false
		}
		return uint32(n), true
	case schema.Int32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, false
		}
		return int32(n), true
	default:
		return n, true
	}
}

func zero(t schema.Type) any {
	switch t {
	case schema.Date, schema.DateTime:
		return epoch
	case schema.Float32:
		return float32(0)
	case schema.Float64:
		return float64(0)
	case schema.UInt8:
		return uint8(0)
	case schema.UInt32:
		return uint32(0)
	case schema.Int32:
		return int32(0)
	case schema.StringArray:
		return []string{}
	default:
		return ""
	}
}
