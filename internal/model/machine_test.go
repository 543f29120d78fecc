package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusOutstanding.Valid())
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("done").Valid())
	assert.False(t, Status("").Valid())
}

func TestPmMachine_BeforeCreateKeepsExistingID(t *testing.T) {
	m := &PmMachine{ID: "fixed"}
	assert.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, "fixed", m.ID)

	fresh := &PmMachine{}
	assert.NoError(t, fresh.BeforeCreate(nil))
	assert.Len(t, fresh.ID, 36)
}
