package pm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pm-tracker-backend/internal/model"
	"pm-tracker-backend/internal/sheet"
	"pm-tracker-backend/internal/store"
)

// RowResult is the outcome of reconciling one import row. Exactly one of
// Machine and Err is set.
type RowResult struct {
	Row     int
	Machine *model.PmMachine
	Created bool
	Err     error
}

// ImportSummary aggregates the row results of an import.
type ImportSummary struct {
	Imported int         `json:"imported"`
	Errors   []string    `json:"errors"`
	Results  []RowResult `json:"-"`
}

// Import reconciles rows against the registry in order. Rows whose idMsn
// is already registered overwrite every field of that machine; other rows
// create a new machine with the status given in the row. A failing row
// does not stop the import.
func (s *Service) Import(ctx context.Context, rows []sheet.Row) ImportSummary {
	summary := ImportSummary{Errors: []string{}}
	for _, row := range rows {
		res := s.importRow(ctx, row)
		summary.Results = append(summary.Results, res)
		if res.Err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Row %d: %s", res.Row, rowMessage(res.Err)))
			continue
		}
		summary.Imported++
	}

	s.log.Info("import finished",
		zap.Int("rows", len(rows)),
		zap.Int("imported", summary.Imported),
		zap.Int("failed", len(summary.Errors)))
	return summary
}

func (s *Service) importRow(ctx context.Context, row sheet.Row) RowResult {
	res := RowResult{Row: row.Number}

	in := inputFromRow(row)
	if err := s.validate.Struct(in); err != nil {
		res.Err = fromValidator(err)
		return res
	}

	_, err := s.store.GetMachine(ctx, in.IDMsn)
	switch {
	case err == nil:
		res.Machine, res.Err = s.store.UpdateMachine(ctx, in.IDMsn, in.columns())
	case errors.Is(err, store.ErrNotFound):
		m := in.toModel()
		if res.Err = s.store.CreateMachine(ctx, m); res.Err == nil {
			res.Machine = m
			res.Created = true
		}
	default:
		res.Err = err
	}

	if res.Err != nil {
		res.Machine = nil
		s.log.Warn("import row failed", zap.Int("row", row.Number), zap.String("id_msn", in.IDMsn), zap.Error(res.Err))
	}
	return res
}

// rowMessage hides storage internals from the import report.
func rowMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, store.ErrConflict):
		return "Machine with this ID MSN already exists"
	case errors.Is(err, store.ErrNotFound):
		return "Machine not found"
	default:
		return "failed to save machine"
	}
}
