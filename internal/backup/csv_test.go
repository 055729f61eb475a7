package backup

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.closeErr
}

func TestWriteCSV(t *testing.T) {
	rows := []*transactionRow{{ID: 1, Date: "2024-01-05", Amount: -450, Description: "Coffee"}}

	t.Run("Writes and closes", func(t *testing.T) {
		w := &closeRecorder{}

		require.NoError(t, writeCSV(w, rows))
		assert.True(t, w.closed)
		assert.Contains(t, w.String(), "amount_cents")
		assert.Contains(t, w.String(), "Coffee")
	})

	t.Run("Close error fails the write", func(t *testing.T) {
		w := &closeRecorder{closeErr: errors.New("short write on flush")}

		err := writeCSV(w, rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "short write on flush")
		assert.True(t, w.closed)
	})
}
