package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Open  string `json:"open_time" validate:"omitempty,hhmm"`
	Day   int    `form:"day" validate:"gte=0,lte=6"`
}

func TestValidatorUsesJSONNames(t *testing.T) {
	err := New().Validate(sample{Email: "nope", Open: "25:00", Day: 9})
	require.Error(t, err)

	var ve validator.ValidationErrors
	require.True(t, errors.As(err, &ve))
	msg := Describe(ve)
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "open_time must be HH:MM")
	assert.Contains(t, msg, "day must satisfy lte=6")
}

func TestValidatorAccepts(t *testing.T) {
	assert.NoError(t, New().Validate(sample{Email: "jane@x.com", Open: "09:30", Day: 0}))
}
