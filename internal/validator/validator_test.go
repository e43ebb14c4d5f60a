package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email  string          `json:"email" validate:"required,email"`
	Stars  int             `json:"stars" validate:"min=1,max=5"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&sampleRequest{Email: "a@example.com", Stars: 3, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
}

func TestValidate_UsesJSONNames(t *testing.T) {
	v := New()
	err := v.Validate(&sampleRequest{Email: "nope", Stars: 9, Amount: decimal.Zero})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "stars must be at most 5")
	assert.Contains(t, err.Error(), "amount is invalid")
}

func TestValidate_Required(t *testing.T) {
	v := New()
	err := v.Validate(&sampleRequest{Stars: 1, Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}
