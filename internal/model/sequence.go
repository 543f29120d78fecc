package model

// Sequence records the highest value ever issued for a named counter.
type Sequence struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int    `gorm:"not null"`
}
