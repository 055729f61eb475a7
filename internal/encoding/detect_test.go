package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/encoding"
)

func TestNewUTF8Reader(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		want        string
		wantCharset encoding.Charset
	}{
		{
			name:        "UTF-8 passthrough",
			input:       []byte("date;amount;description\n2024-01-05;-4,50;Café\n"),
			want:        "date;amount;description\n2024-01-05;-4,50;Café\n",
			wantCharset: encoding.UTF8,
		},
		{
			name:        "UTF-8 BOM stripped",
			input:       append([]byte{0xEF, 0xBB, 0xBF}, []byte("Descrição\n")...),
			want:        "Descrição\n",
			wantCharset: encoding.UTF8BOM,
		},
		{
			// ç = 0xE7, ã = 0xE3. Latin encodings agree on these bytes, so the charset is not asserted.
			name:  "Windows-1252",
			input: []byte{'D', 'e', 's', 'c', 'r', 'i', 0xE7, 0xE3, 'o', ';', 'V', 'a', 'l', 'o', 'r', '\n'},
			want:  "Descrição;Valor\n",
		},
		{
			name:        "UTF-16LE with BOM",
			input:       []byte{0xFF, 0xFE, 'a', 0, ';', 0, 'b', 0},
			want:        "a;b",
			wantCharset: encoding.UTF16LE,
		},
		{
			name:        "Empty",
			input:       nil,
			want:        "",
			wantCharset: encoding.UTF8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, charset, err := encoding.NewUTF8Reader(bytes.NewReader(tt.input))
			require.NoError(t, err)
			if tt.wantCharset != "" {
				assert.Equal(t, tt.wantCharset, charset)
			}

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestNewUTF8Reader_LargeInput(t *testing.T) {
	input := bytes.Repeat([]byte("2024-01-05;-4.50;Coffee\n"), 1000)

	r, charset, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}

func TestNewUTF8Reader_RuneAcrossSniffBoundary(t *testing.T) {
	input := append(bytes.Repeat([]byte("a"), 4095), []byte("é;Café\n")...)

	r, charset, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}
