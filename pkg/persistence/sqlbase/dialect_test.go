package sqlbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"UPDATE t SET s = 'why?' WHERE id = ?", "UPDATE t SET s = 'why?' WHERE id = $1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RebindDollar(tt.query))
	}
}
