package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type orderInput struct {
	EventID      string   `json:"eventId" validate:"required"`
	Participants int      `json:"participants" validate:"min=1,max=20"`
	Customer     customer `json:"customer"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(orderInput{Participants: 25, Customer: customer{Name: "A", Email: "nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, "required", fields["eventId"])
	assert.Equal(t, "max", fields["participants"])
	assert.Equal(t, "email", fields["customer.email"])
}

func TestStructPasses(t *testing.T) {
	err := Struct(orderInput{EventID: "1", Participants: 2, Customer: customer{Name: "A", Email: "a@example.com"}})
	assert.NoError(t, err)
}

func TestNewError(t *testing.T) {
	err := NewError("amount", "required", "amount is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation_error: amount: required", err.Error())
}
