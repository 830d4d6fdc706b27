package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	p := Normalize(Params{})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultSize, p.Size)
}

func TestNormalizeCapsSize(t *testing.T) {
	p := Normalize(Params{Page: 3, Size: 5000})
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxSize, p.Size)
}

func TestOffset(t *testing.T) {
	p := Normalize(Params{Page: 4, Size: 25})
	assert.Equal(t, 75, p.Offset())
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(Normalize(Params{Page: 2, Size: 10}), 41)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, int64(41), meta.Total)
	assert.Equal(t, 5, meta.TotalPages)

	empty := NewMeta(Normalize(Params{}), 0)
	assert.Equal(t, 1, empty.TotalPages)
}
