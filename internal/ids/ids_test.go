package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewULIDSortsByCreation(t *testing.T) {
	a := NewULID()
	b := NewULID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a[:10], b[:10])
}

func TestNewUUIDv7Version(t *testing.T) {
	id := NewUUIDv7()
	assert.Equal(t, 7, int(id.Version()))
}
