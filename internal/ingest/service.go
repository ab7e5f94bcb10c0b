// Package ingest runs one record through validation, projection and the
// destination store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-ingest/internal/db"
	"github.com/ukydev/vehicle-ingest/internal/logging"
	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/projector"
	"github.com/ukydev/vehicle-ingest/internal/schema"
	"github.com/ukydev/vehicle-ingest/internal/validation"
)

// NoServiceRecords is the acknowledgment for a service-history batch without
// children.
const NoServiceRecords = "No service records to insert"

// Ack is the success acknowledgment of one ingested record.
type Ack struct {
	Message string
	Key     map[string]any
	Rows    int
}

// Service ingests records into Store. Validator is optional; without it the
// caller is trusted to have checked the record shape.
type Service struct {
	Store     db.Store
	Projector *projector.Projector
	Validator *validation.Validator
	Dedup     bool
	Log       log.FieldLogger
}

// AddFastag ingests one FASTag record.
func (s *Service) AddFastag(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.Fastag, rec)
}

// AddVehicleRC ingests one registration certificate.
func (s *Service) AddVehicleRC(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.VehicleRC, rec)
}

// AddChallanRecord ingests one challan with its violations. A missing or
// unparsable dateChallan is rejected before the store is touched.
func (s *Service) AddChallanRecord(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.ChallanRecord, rec)
}

// AddRCBlackList ingests one blacklist entry.
func (s *Service) AddRCBlackList(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.RCBlackList, rec)
}

// AddChallanAllState ingests one all-state challan.
func (s *Service) AddChallanAllState(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.ChallanAllState, rec)
}

// AddRCChassis ingests one chassis reference.
func (s *Service) AddRCChassis(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.RCChassis, rec)
}

// AddServiceHistory ingests a vehicle's service history, one row per event.
func (s *Service) AddServiceHistory(ctx context.Context, rec models.Payload) (*Ack, error) {
	return s.Ingest(ctx, schema.ServiceHistory, rec)
}

// Ingest validates rec, projects it for entity e and inserts the rows in a
// single call.
func (s *Service) Ingest(ctx context.Context, e schema.Entity, rec models.Payload) (*Ack, error) {
	t, ok := schema.Lookup(e)
	if !ok {
		return nil, &ClientInputError{Err: fmt.Errorf("unknown entity %q", e)}
	}
	if s.Validator != nil {
		if err := s.Validator.Validate(e, rec); err != nil {
			var verr *validation.Error
			if errors.As(err, &verr) {
				return nil, &ClientInputError{Err: err}
			}
			return nil, err
		}
	}
	return s.insert(ctx, t, rec)
}

func (s *Service) insert(ctx context.Context, t *schema.Table, rec models.Payload) (*Ack, error) {
	if s.Store == nil {
		return nil, &StoreError{Op: "insert into", Table: t.Name, Err: errors.New("store is nil")}
	}
	logger := logging.FromContext(ctx, s.Log).WithField("table", t.Name)

	rows, err := s.Projector.ProjectBatch(t, rec)
	if err != nil {
		var mf *projector.MandatoryFieldError
		if errors.As(err, &mf) {
			return nil, &ClientInputError{Err: err}
		}
		return nil, err
	}
	ack := &Ack{Message: t.Message, Key: ackKey(t, rec), Rows: len(rows)}

	if err := s.Store.EnsureTable(ctx, t); err != nil {
		return nil, &StoreError{Op: "ensure table", Table: t.Name, Err: err}
	}
	if len(rows) == 0 {
		logger.Info("no rows to insert")
		ack.Message = NoServiceRecords
		return ack, nil
	}

	if s.Dedup && t.FanOut == nil && len(t.Keys) > 0 {
		key := rowKey(t, rows[0])
		exists, err := s.Store.Exists(ctx, t, key)
		if err != nil {
			return nil, &StoreError{Op: "duplicate check on", Table: t.Name, Err: err}
		}
		if exists {
			return nil, &DuplicateError{Table: t.Name, Key: key, Order: t.Keys}
		}
	}

	if err := s.Store.Insert(ctx, t.Name, rows, t.Columns()); err != nil {
		return nil, &StoreError{Op: "insert into", Table: t.Name, Err: err}
	}
	logger.WithField("rows", len(rows)).Info("records inserted")
	return ack, nil
}

// ackKey echoes the natural key as submitted.
func ackKey(t *schema.Table, rec models.Payload) map[string]any {
	key := make(map[string]any, len(t.Keys))
	for _, col := range t.Keys {
		key[col] = rec.Get(col)
	}
	return key
}

// rowKey reads the natural key from a projected row, so the lookup compares
// stored values.
func rowKey(t *schema.Table, row []any) map[string]any {
	key := make(map[string]any, len(t.Keys))
	for _, col := range t.Keys {
		if i := t.Index(col); i >= 0 {
			key[col] = row[i]
		}
	}
	return key
}
