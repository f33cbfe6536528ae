package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	pg := New(nil, Dialect{Name: "postgres", NumberedPlaceholders: true})
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := New(nil, Dialect{Name: "sqlite"})
	assert.Equal(t, "DELETE FROM t WHERE id = ?", lite.rebind("DELETE FROM t WHERE id = ?"))
}

func TestNonNil(t *testing.T) {
	var s []string
	assert.NotNil(t, nonNil(s))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}
