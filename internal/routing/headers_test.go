package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"header-rules/internal/models"
)

func TestCheckHeader(t *testing.T) {
	tests := []struct {
		name   string
		header models.HeaderEntry
		want   HeaderAction
		ok     bool
	}{
		{"defaults", models.HeaderEntry{Name: "X-A", Value: "1"}, HeaderAction{"X-A", models.OperationSet, models.TargetRequest}, true},
		{"normalised case", models.HeaderEntry{Name: "X-A", Value: "1", Operation: " Append ", Target: "Response"}, HeaderAction{"X-A", models.OperationAppend, models.TargetResponse}, true},
		{"remove without value", models.HeaderEntry{Name: "Cookie", Operation: models.OperationRemove}, HeaderAction{"Cookie", models.OperationRemove, models.TargetRequest}, true},
		{"bad name", models.HeaderEntry{Name: "X A", Value: "1"}, HeaderAction{}, false},
		{"empty name", models.HeaderEntry{Value: "1"}, HeaderAction{}, false},
		{"unknown target", models.HeaderEntry{Name: "X-A", Value: "1", Target: "both"}, HeaderAction{}, false},
		{"set without value", models.HeaderEntry{Name: "X-A", Operation: models.OperationSet}, HeaderAction{}, false},
		{"unknown operation", models.HeaderEntry{Name: "X-A", Value: "1", Operation: "replace"}, HeaderAction{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckHeader(tt.header)
			if !tt.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidHeader)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
