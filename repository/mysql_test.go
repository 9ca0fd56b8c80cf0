package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Limit(0) would render as LIMIT 0 and return no rows, so the "no
// limit" convention must map to a negative value, which drops the
// clause from the generated SQL.
func TestSQLLimitNormalization(t *testing.T) {
	assert.Equal(t, -1, sqlLimit(0))
	assert.Equal(t, -1, sqlLimit(-5))
	assert.Equal(t, 1, sqlLimit(1))
	assert.Equal(t, 20, sqlLimit(20))
}
