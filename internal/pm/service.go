package pm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pm-tracker-backend/internal/model"
	"pm-tracker-backend/internal/sheet"
	"pm-tracker-backend/internal/store"
)

// Notifier is told about every status transition of a machine.
type Notifier interface {
	Notify(idMsn string, status model.Status)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, model.Status) {}

// Service implements the machine registry operations on top of a Store.
type Service struct {
	store    store.Store
	notifier Notifier
	validate *validator.Validate
	log      *zap.Logger
}

// NewService creates a Service. A nil notifier disables notifications.
func NewService(s store.Store, n Notifier, log *zap.Logger) *Service {
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, notifier: n, validate: newValidator(), log: log}
}

// List returns machines ordered by number, optionally filtered by a
// case-insensitive substring match on pengelola, periodePM or status.
func (s *Service) List(ctx context.Context, query string) ([]model.PmMachine, error) {
	return s.store.ListMachines(ctx, strings.TrimSpace(query))
}

// Get returns a single machine.
func (s *Service) Get(ctx context.Context, idMsn string) (*model.PmMachine, error) {
	return s.store.GetMachine(ctx, idMsn)
}

// Create registers a new machine. New machines always start Outstanding.
func (s *Service) Create(ctx context.Context, in MachineInput) (*model.PmMachine, error) {
	in.normalize()
	in.Status = model.StatusOutstanding
	if err := s.validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	m := in.toModel()
	if err := s.store.CreateMachine(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("machine created", zap.String("id_msn", m.IDMsn), zap.Int("no", m.No))
	return m, nil
}

// Patch applies a partial update. Setting the status to Done requires a
// completion date, either in the patch or already stored.
func (s *Service) Patch(ctx context.Context, idMsn string, p MachinePatch) (*model.PmMachine, error) {
	p.normalize()
	if err := s.validate.Struct(p); err != nil {
		return nil, fromValidator(err)
	}

	if p.Status != nil && *p.Status == model.StatusDone {
		if err := s.requireCompletionDate(ctx, idMsn, p.TglSelesaiPM); err != nil {
			return nil, err
		}
	}

	cols := p.columns()
	if len(cols) == 0 {
		return s.store.GetMachine(ctx, idMsn)
	}
	m, err := s.store.UpdateMachine(ctx, idMsn, cols)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		s.notifier.Notify(m.IDMsn, m.Status)
	}
	return m, nil
}

func (s *Service) requireCompletionDate(ctx context.Context, idMsn string, tgl *string) error {
	if tgl != nil {
		if *tgl == "" {
			return invalidField("tglSelesaiPM", "is required when status is Done")
		}
		return nil
	}
	current, err := s.store.GetMachine(ctx, idMsn)
	if err != nil {
		return err
	}
	if current.TglSelesaiPM == nil {
		return invalidField("tglSelesaiPM", "is required when status is Done")
	}
	return nil
}

// Edit corrects the descriptive fields without touching the maintenance cycle.
func (s *Service) Edit(ctx context.Context, idMsn string, in EditInput) (*model.PmMachine, error) {
	return s.Patch(ctx, idMsn, MachinePatch{
		Alamat:    in.Alamat,
		Pengelola: in.Pengelola,
		Teknisi:   in.Teknisi,
	})
}

// Complete records the completion date of the current cycle and marks the
// machine Done.
func (s *Service) Complete(ctx context.Context, idMsn, tglSelesaiPM string) (*model.PmMachine, error) {
	tglSelesaiPM = strings.TrimSpace(tglSelesaiPM)
	if tglSelesaiPM == "" {
		return nil, invalidField("tglSelesaiPM", "is required")
	}
	return s.transition(ctx, idMsn, map[string]any{
		"tgl_selesai_pm": tglSelesaiPM,
		"status":         model.StatusDone,
	})
}

// Reschedule opens a new cycle for the given period. The machine returns to
// Outstanding; the last completion date is kept for reference.
func (s *Service) Reschedule(ctx context.Context, idMsn, periodePM string) (*model.PmMachine, error) {
	periodePM = strings.TrimSpace(periodePM)
	if periodePM == "" {
		return nil, invalidField("periodePM", "is required")
	}
	return s.transition(ctx, idMsn, map[string]any{
		"periode_pm": periodePM,
		"status":     model.StatusOutstanding,
	})
}

func (s *Service) transition(ctx context.Context, idMsn string, cols map[string]any) (*model.PmMachine, error) {
	m, err := s.store.UpdateMachine(ctx, idMsn, cols)
	if err != nil {
		return nil, err
	}
	s.log.Info("machine status changed", zap.String("id_msn", m.IDMsn), zap.String("status", string(m.Status)))
	s.notifier.Notify(m.IDMsn, m.Status)
	return m, nil
}

// Delete removes a machine when deleteAll is set. Otherwise only the
// maintenance cycle is cleared and the machine stays registered.
func (s *Service) Delete(ctx context.Context, idMsn string, deleteAll bool) error {
	if deleteAll {
		if err := s.store.DeleteMachine(ctx, idMsn); err != nil {
			return err
		}
		s.log.Info("machine deleted", zap.String("id_msn", idMsn))
		return nil
	}

	m, err := s.store.ResetMachine(ctx, idMsn)
	if err != nil {
		return err
	}
	s.log.Info("machine cycle reset", zap.String("id_msn", idMsn))
	s.notifier.Notify(m.IDMsn, m.Status)
	return nil
}

// Export renders the (optionally filtered) registry as an xlsx workbook.
func (s *Service) Export(ctx context.Context, query string) ([]byte, error) {
	machines, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return sheet.Export(machines)
}

// Note returns the note of a machine. A machine without a note gets an
// empty, unsaved one.
func (s *Service) Note(ctx context.Context, idMsn string) (*model.MachineNote, error) {
	n, err := s.store.GetNote(ctx, idMsn)
	if errors.Is(err, store.ErrNotFound) {
		now := time.Now()
		return &model.MachineNote{IDMsn: idMsn, CreatedAt: now, UpdatedAt: now}, nil
	}
	return n, err
}

// SaveNote creates or replaces the note of a machine.
func (s *Service) SaveNote(ctx context.Context, idMsn, content string) (*model.MachineNote, error) {
	idMsn = strings.TrimSpace(idMsn)
	if idMsn == "" {
		return nil, invalidField("idMsn", "is required")
	}
	return s.store.UpsertNote(ctx, idMsn, content)
}

// ImportFile reads an uploaded workbook and reconciles its rows.
func (s *Service) ImportFile(ctx context.Context, r io.Reader) (ImportSummary, error) {
	rows, err := sheet.ReadRows(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return s.Import(ctx, rows), nil
}
