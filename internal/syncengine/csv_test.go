package syncengine_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/encoding"
	"github.com/MrJamesThe3rd/ledgersync/internal/syncengine"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantDelim rune
		wantTxs   []syncengine.SyncTransaction
		wantSkip  int
	}{
		{
			name:      "Comma separated",
			input:     "date,amount,description,reason\n2024-01-05,-4.50,Coffee,\n2024-01-06,2000,Salary,January\n",
			wantDelim: ',',
			wantTxs: []syncengine.SyncTransaction{
				st("2024-01-05", "-4.50", "Coffee"),
				{Date: "2024-01-06", Amount: st("", "2000", "").Amount, Description: "Salary", Reason: "January"},
			},
		},
		{
			name:      "Semicolon with decimal comma and no reason column",
			input:     "date;amount;description\n2024-01-05; -4,50 ; Coffee \n\n",
			wantDelim: ';',
			wantTxs:   []syncengine.SyncTransaction{st("2024-01-05", "-4.50", "Coffee")},
		},
		{
			name:      "Bad amount is skipped",
			input:     "date,amount,description\n2024-01-05,abc,Coffee\n2024-01-06,1,Tea\n",
			wantDelim: ',',
			wantTxs:   []syncengine.SyncTransaction{st("2024-01-06", "1", "Tea")},
			wantSkip:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := syncengine.ParseCSV(strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Equal(t, tt.wantDelim, got.Delimiter)
			assert.Equal(t, encoding.UTF8, got.Charset)
			assert.Equal(t, tt.wantSkip, got.Skipped)
			require.Len(t, got.Transactions, len(tt.wantTxs))

			for i, want := range tt.wantTxs {
				assert.Equal(t, want.Date, got.Transactions[i].Date)
				assert.True(t, want.Amount.Equal(got.Transactions[i].Amount), got.Transactions[i].Amount.String())
				assert.Equal(t, want.Description, got.Transactions[i].Description)
				assert.Equal(t, want.Reason, got.Transactions[i].Reason)
			}
		})
	}
}

func TestParseCSV_Windows1252(t *testing.T) {
	input := []byte("date;amount;description\n2024-01-05;-3,20;Pastelaria S\xe3o Jo\xe3o\n")

	got, err := syncengine.ParseCSV(bytes.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "Pastelaria São João", got.Transactions[0].Description)
	assert.NotEqual(t, encoding.UTF8, got.Charset)
}

func TestParseCSV_Empty(t *testing.T) {
	for _, input := range []string{"", "date,amount,description\n"} {
		_, err := syncengine.ParseCSV(strings.NewReader(input))
		assert.True(t, errors.Is(err, syncengine.ErrEmptyCSV), "input %q: %v", input, err)
	}
}
