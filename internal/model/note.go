package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MachineNote is the free-text annotation attached to a machine. There is at
// most one row per IDMsn and it is not tied to the machine row's lifecycle.
type MachineNote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id,omitempty"`
	IDMsn     string    `gorm:"column:id_msn;uniqueIndex;size:128;not null" json:"idMsn"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the row identity.
func (n *MachineNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
