package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the maintenance state of a machine.
type Status string

const (
	StatusOutstanding Status = "Outstanding"
	StatusDone        Status = "Done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusOutstanding || s == StatusDone
}

// PmMachine is a maintenance-tracked asset. IDMsn is the external key used by
// every lookup; No is its display order, assigned once at creation.
type PmMachine struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	No           int       `gorm:"uniqueIndex;not null" json:"no"`
	IDMsn        string    `gorm:"column:id_msn;uniqueIndex;size:128;not null" json:"idMsn"`
	Alamat       string    `gorm:"type:text;not null" json:"alamat"`
	Pengelola    string    `gorm:"type:text;not null" json:"pengelola"`
	PeriodePM    *string   `gorm:"column:periode_pm;size:128" json:"periodePM"`
	TglSelesaiPM *string   `gorm:"column:tgl_selesai_pm;size:64" json:"tglSelesaiPM"`
	Status       Status    `gorm:"size:32;not null;default:'Outstanding'" json:"status"`
	Teknisi      string    `gorm:"type:text;not null" json:"teknisi"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the opaque internal identity.
func (m *PmMachine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
