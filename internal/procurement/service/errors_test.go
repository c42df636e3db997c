package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := notFoundError("purchase order %s not found", "po-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "purchase order po-1 not found", err.Error())

	wrapped := fmt.Errorf("select winner: %w", conflict("duplicate"))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(wrapped))

	assert.Equal(t, Kind(0), KindOf(errors.New("db down")))
}

func TestAlreadyResolvedMessage(t *testing.T) {
	err := alreadyResolved("req-9")
	assert.True(t, errors.Is(err, ErrAlreadyResolved))
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, "quotation request req-9 was already resolved", err.Error())
}
