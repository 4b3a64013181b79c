package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clientForm struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Currency string   `json:"currency" validate:"omitempty,iso4217"`
	Handle   string   `json:"handle" validate:"omitempty,handle"`
	Score    int      `json:"satisfaction_score" validate:"omitempty,gte=1,lte=5"`
	Status   string   `json:"status" validate:"omitempty,oneof=active paused churned"`
	Tags     []string `json:"tags" validate:"max=3"`
	Internal string   `json:"-" validate:"omitempty,uuid"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := clientForm{Name: "Café Andino", Email: "hola@andino.co", Currency: "COP", Handle: "@cafe.andino", Score: 4, Status: "active"}
		assert.NoError(t, ValidateStruct(&f))
	})

	cases := map[string]struct {
		form    clientForm
		field   string
		message string
	}{
		"missing name":   {clientForm{}, "name", "name is required"},
		"bad email":      {clientForm{Name: "x", Email: "nope"}, "email", "email must be a valid email"},
		"bad currency":   {clientForm{Name: "x", Currency: "PESOS"}, "currency", "currency must be an ISO 4217 currency code"},
		"bad handle":     {clientForm{Name: "x", Handle: "a b"}, "handle", "handle must be 2-32 letters, digits, dots, dashes or underscores"},
		"score too high": {clientForm{Name: "x", Score: 9}, "satisfaction_score", "satisfaction_score must be less than or equal to 5"},
		"bad status":     {clientForm{Name: "x", Status: "gone"}, "status", "status must be one of: active, paused, churned"},
		"too many tags":  {clientForm{Name: "x", Tags: []string{"a", "b", "c", "d"}}, "tags", "tags must have at most 3 items or characters"},
		"untagged field": {clientForm{Name: "x", Internal: "zzz"}, "Internal", "Internal must be a valid UUID"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateStruct(&tc.form)

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			fields := GetValidationFields(err)
			assert.Equal(t, tc.message, fields[tc.field])
		})
	}
}

func TestGetValidationFields_OtherErrors(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsValidationError(err))
	assert.Nil(t, GetValidationFields(err))
}
