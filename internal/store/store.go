package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pm-tracker-backend/internal/model"
)

// maxNumberAttempts bounds how often CreateMachine recomputes "no" after
// losing a numbering race to a concurrent insert.
const maxNumberAttempts = 3

// Store defines the interface for all database operations.
type Store interface {
	NextNumber(ctx context.Context) (int, error)
	CreateMachine(ctx context.Context, m *model.PmMachine) error
	GetMachine(ctx context.Context, idMsn string) (*model.PmMachine, error)
	ListMachines(ctx context.Context, query string) ([]model.PmMachine, error)
	CountMachines(ctx context.Context) (int64, error)
	UpdateMachine(ctx context.Context, idMsn string, fields map[string]any) (*model.PmMachine, error)
	ResetMachine(ctx context.Context, idMsn string) (*model.PmMachine, error)
	DeleteMachine(ctx context.Context, idMsn string) error

	GetNote(ctx context.Context, idMsn string) (*model.MachineNote, error)
	UpsertNote(ctx context.Context, idMsn, content string) (*model.MachineNote, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, idMsns []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsFor(ctx context.Context, idMsn string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

var orderByNo = clause.OrderByColumn{Column: clause.Column{Name: "no"}}

// machineNoSequence names the high-water mark of issued machine numbers.
const machineNoSequence = "pm_machines.no"

// NextNumber returns max(no)+1 over all machines, or 1 for an empty table.
// Numbers freed by deleting the highest row are not handed out again.
func (s *gormStore) NextNumber(ctx context.Context) (int, error) {
	return nextNumber(s.db.WithContext(ctx))
}

func nextNumber(tx *gorm.DB) (int, error) {
	var maxNo int
	if err := tx.Model(&model.PmMachine{}).Select(`COALESCE(MAX("no"), 0)`).Scan(&maxNo).Error; err != nil {
		return 0, fmt.Errorf("failed to compute next machine number: %w", err)
	}

	var seq model.Sequence
	if err := tx.Where("name = ?", machineNoSequence).Limit(1).Find(&seq).Error; err != nil {
		return 0, fmt.Errorf("failed to read machine number sequence: %w", err)
	}
	if seq.Value > maxNo {
		maxNo = seq.Value
	}
	return maxNo + 1, nil
}

func recordNumber(tx *gorm.DB, no int) error {
	seq := model.Sequence{Name: machineNoSequence, Value: no}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&seq).Error
}

// CreateMachine assigns the next number and inserts m. Uniqueness of IDMsn is
// enforced by the id_msn index; a violation is reported as ErrConflict.
func (s *gormStore) CreateMachine(ctx context.Context, m *model.PmMachine) error {
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			no, err := nextNumber(tx)
			if err != nil {
				return err
			}
			m.No = no
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			return recordNumber(tx, no)
		})
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return fmt.Errorf("failed to create machine %q: %w", m.IDMsn, err)
		}

		// Either the key is taken or another insert claimed the same number.
		exists, lookupErr := s.machineExists(ctx, m.IDMsn)
		if lookupErr != nil {
			return lookupErr
		}
		if exists {
			return fmt.Errorf("machine %q: %w", m.IDMsn, ErrConflict)
		}
		if attempt >= maxNumberAttempts {
			return fmt.Errorf("failed to assign a number to machine %q: %w", m.IDMsn, err)
		}
	}
}

func (s *gormStore) machineExists(ctx context.Context, idMsn string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.PmMachine{}).Where("id_msn = ?", idMsn).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up machine %q: %w", idMsn, err)
	}
	return count > 0, nil
}

// GetMachine returns the machine with the given external key.
func (s *gormStore) GetMachine(ctx context.Context, idMsn string) (*model.PmMachine, error) {
	return getMachine(s.db.WithContext(ctx), idMsn)
}

func getMachine(tx *gorm.DB, idMsn string) (*model.PmMachine, error) {
	var m model.PmMachine
	if err := tx.Where("id_msn = ?", idMsn).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("machine %q: %w", idMsn, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch machine %q: %w", idMsn, err)
	}
	return &m, nil
}

// ListMachines returns machines ordered by number. A non-empty query keeps
// only machines whose pengelola, periode_pm or status contains it,
// ignoring case.
func (s *gormStore) ListMachines(ctx context.Context, query string) ([]model.PmMachine, error) {
	tx := s.db.WithContext(ctx).Model(&model.PmMachine{})
	if query != "" {
		pattern := likePattern(query)
		tx = tx.Where(
			`LOWER(pengelola) LIKE ? ESCAPE '\' OR LOWER(periode_pm) LIKE ? ESCAPE '\' OR LOWER(status) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	machines := make([]model.PmMachine, 0)
	if err := tx.Order(orderByNo).Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

// CountMachines returns the number of machine rows.
func (s *gormStore) CountMachines(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.PmMachine{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count machines: %w", err)
	}
	return count, nil
}

// UpdateMachine merges fields (keyed by column name) onto the machine and
// refreshes updated_at. Nil values clear nullable columns.
func (s *gormStore) UpdateMachine(ctx context.Context, idMsn string, fields map[string]any) (*model.PmMachine, error) {
	var updated *model.PmMachine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			values[k] = v
		}
		values["updated_at"] = time.Now()

		res := tx.Model(&model.PmMachine{}).Where("id_msn = ?", idMsn).Updates(values)
		if res.Error != nil {
			if isDuplicateKey(res.Error) {
				return fmt.Errorf("machine %q: %w", idMsn, ErrConflict)
			}
			return fmt.Errorf("failed to update machine %q: %w", idMsn, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("machine %q: %w", idMsn, ErrNotFound)
		}

		// The key itself may have been part of the update.
		key := idMsn
		if v, ok := values["id_msn"].(string); ok && v != "" {
			key = v
		}
		m, err := getMachine(tx, key)
		if err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResetMachine clears the current maintenance cycle without removing the row.
func (s *gormStore) ResetMachine(ctx context.Context, idMsn string) (*model.PmMachine, error) {
	return s.UpdateMachine(ctx, idMsn, map[string]any{
		"periode_pm":     nil,
		"tgl_selesai_pm": nil,
		"status":         model.StatusOutstanding,
	})
}

// DeleteMachine removes the row. Numbers of remaining rows are untouched.
func (s *gormStore) DeleteMachine(ctx context.Context, idMsn string) error {
	res := s.db.WithContext(ctx).Where("id_msn = ?", idMsn).Delete(&model.PmMachine{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete machine %q: %w", idMsn, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("machine %q: %w", idMsn, ErrNotFound)
	}
	return nil
}

// GetNote returns the note stored for idMsn.
func (s *gormStore) GetNote(ctx context.Context, idMsn string) (*model.MachineNote, error) {
	return getNote(s.db.WithContext(ctx), idMsn)
}

func getNote(tx *gorm.DB, idMsn string) (*model.MachineNote, error) {
	var note model.MachineNote
	if err := tx.Where("id_msn = ?", idMsn).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("note for %q: %w", idMsn, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch note for %q: %w", idMsn, err)
	}
	return &note, nil
}

// UpsertNote inserts the note or replaces the content of the existing one in
// a single statement keyed on id_msn.
func (s *gormStore) UpsertNote(ctx context.Context, idMsn, content string) (*model.MachineNote, error) {
	var saved *model.MachineNote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note := model.MachineNote{IDMsn: idMsn, Content: content}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id_msn"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).Create(&note).Error; err != nil {
			return fmt.Errorf("failed to upsert note for %q: %w", idMsn, err)
		}

		n, err := getNote(tx, idMsn)
		if err != nil {
			return err
		}
		saved = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// PutSubscription creates or replaces a push subscription and the set of
// machine keys it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, idMsns []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Targets").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionTarget{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscription targets: %w", err)
		}

		seen := make(map[string]struct{}, len(idMsns))
		targets := make([]model.SubscriptionTarget, 0, len(idMsns))
		for _, id := range idMsns {
			if _, dup := seen[id]; dup || id == "" {
				continue
			}
			seen[id] = struct{}{}
			targets = append(targets, model.SubscriptionTarget{Endpoint: sub.Endpoint, IDMsn: id})
		}
		if len(targets) > 0 {
			if err := tx.Create(&targets).Error; err != nil {
				return fmt.Errorf("failed to save subscription targets: %w", err)
			}
		}
		sub.Targets = targets
		return nil
	})
}

// GetSubscription returns the subscription with its targets.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Targets").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its targets.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionTarget{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription targets: %w", err)
		}
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// SubscriptionsFor returns every subscription following idMsn.
func (s *gormStore) SubscriptionsFor(ctx context.Context, idMsn string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_targets st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.id_msn = ?", idMsn).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for %q: %w", idMsn, err)
	}
	return subs, nil
}
