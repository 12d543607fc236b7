package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTo(t *testing.T) {
	s := "test"
	p := To(s)
	if assert.NotNil(t, p) {
		assert.Equal(t, s, *p)
	}
	assert.NotSame(t, &s, p)

	id := int64(42)
	assert.Equal(t, id, *To(id))
}

func TestPriority(t *testing.T) {
	p := Priority(3)
	assert.Equal(t, int16(3), *p)
	assert.NotSame(t, p, Priority(3))
}

func TestDeref(t *testing.T) {
	assert.Equal(t, int64(7), Deref[int64](nil, 7))
	assert.Equal(t, int64(9), Deref(To(int64(9)), 7))
	assert.True(t, Deref(To(true), false))
}
