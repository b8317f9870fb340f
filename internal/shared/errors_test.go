package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsMatch(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Conflict("Insufficient stock"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Insufficient stock", UserMessage(err))

	assert.ErrorIs(t, ErrInvalidCredentials, ErrUnauthorized)
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))
}

func TestPageOffset(t *testing.T) {
	p := PageFromQuery(map[string][]string{"page": {"3"}, "per_page": {"500"}})
	assert.Equal(t, 200, p.PerPage)
	assert.Equal(t, 400, p.Offset())

	pg := NewPagination(Page{Number: 2, PerPage: 10}, 25)
	assert.Equal(t, 3, pg.TotalPages)
	assert.True(t, pg.HasNext())
	assert.True(t, pg.HasPrev())
}
