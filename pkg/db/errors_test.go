package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))

	// postgres form
	assert.True(t, IsUniqueViolation(errors.New(
		`duplicate key value violates unique constraint "idx_users_email"`)))

	// sqlite form, as seen by the test suites
	assert.True(t, IsUniqueViolation(errors.New(
		"UNIQUE constraint failed: users.email")))
}
