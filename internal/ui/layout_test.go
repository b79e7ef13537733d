package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutDimensions(t *testing.T) {
	l := NewLayout(100, 30)
	assert.Equal(t, 28, l.ContentHeight())
	assert.Equal(t, 38, l.ListWidth())
	assert.Equal(t, 58, l.DetailWidth())
	assert.Equal(t, 26, l.PaneHeight())
}

func TestLayoutMinimums(t *testing.T) {
	l := NewLayout(10, 4)
	assert.Equal(t, 20, l.ListWidth())
	assert.Equal(t, 20, l.DetailWidth())
	assert.Equal(t, 3, l.PaneHeight())
}
