package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/common/errors"
)

func TestIsValidHeaderName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "Authorization", true},
		{"hyphenated", "X-Api-Key", true},
		{"digits", "X-Trace-2", true},
		{"empty", "", false},
		{"leading hyphen", "-X-Thing", false},
		{"leading underscore", "_private", false},
		{"underscore inside", "X_Custom", false},
		{"space", "X Custom", false},
		{"colon", "X-Custom:", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidHeaderName(tt.input))
		})
	}
}

func TestValidCronExpression(t *testing.T) {
	assert.True(t, ValidCronExpression("*/5 * * * *"))
	assert.True(t, ValidCronExpression("@every 30s"))
	assert.True(t, ValidCronExpression("@hourly"))
	assert.False(t, ValidCronExpression(""))
	assert.False(t, ValidCronExpression("every five minutes"))
}

type sample struct {
	Header   string `json:"header" validate:"required,header_name"`
	Schedule string `json:"schedule" validate:"omitempty,cron_expression"`
	Mode     string `json:"mode" validate:"oneof=a b"`
}

func TestCentralizedValidator_ValidateStruct(t *testing.T) {
	v := NewCentralizedValidator()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateStruct(sample{Header: "X-Env", Schedule: "@every 1m", Mode: "a"}))
	})

	t.Run("single error uses json name", func(t *testing.T) {
		err := v.ValidateStruct(sample{Header: "X_Env", Mode: "a"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
		assert.Contains(t, err.Error(), "field 'header' must be a valid header name")
	})

	t.Run("multiple errors are joined", func(t *testing.T) {
		err := v.ValidateStruct(sample{Schedule: "nope", Mode: "c"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed:")
		assert.Contains(t, err.Error(), "'schedule'")
		assert.Contains(t, err.Error(), "'mode'")
	})
}

func TestCentralizedValidator_Errors(t *testing.T) {
	v := Default()

	assert.Nil(t, v.Errors(sample{Header: "X-Ok", Mode: "b"}))

	errs := v.Errors(sample{Header: "", Mode: "b"})
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].Tag)
	assert.Equal(t, "sample.header", errs[0].Field)
}

func TestValidateVar(t *testing.T) {
	v := Default()
	assert.NoError(t, v.ValidateVar("@daily", "cron_expression"))
	assert.Error(t, v.ValidateVar("0 0", "cron_expression"))
}
