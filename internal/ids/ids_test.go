package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 27)
}

func TestNewUUID(t *testing.T) {
	id := NewUUID()
	assert.True(t, IsUUID(id))
	assert.False(t, IsUUID("not-a-uuid"))
}
