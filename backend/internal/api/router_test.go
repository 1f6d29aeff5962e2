package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerValidations(v))

	tests := []struct {
		name  string
		value string
		tag   string
		valid bool
	}{
		{"known gender", "Female", "gender", true},
		{"empty gender", "", "gender", true},
		{"unknown gender", "unknown", "gender", false},
		{"iso date", "1815-12-10", "isodate", true},
		{"empty date", "", "isodate", true},
		{"slashed date", "10/12/1815", "isodate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Var(tt.value, tt.tag)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
