package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	textencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names the encoding an upload was decoded from.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8-BOM"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	Windows1252 Charset = "windows-1252"
	ISO8859_9   Charset = "ISO-8859-9"
)

const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Detect guesses the charset of sample.
//
// Detection order:
//  1. BOM
//  2. Valid UTF-8
//  3. Heuristic detection via chardet
//  4. Fallback to Windows-1252
func Detect(sample []byte) Charset {
	switch {
	case bytes.HasPrefix(sample, bomUTF8):
		return UTF8BOM
	case bytes.HasPrefix(sample, bomUTF16LE):
		return UTF16LE
	case bytes.HasPrefix(sample, bomUTF16BE):
		return UTF16BE
	case utf8.Valid(sample):
		return UTF8
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil {
		switch result.Charset {
		case "UTF-8":
			return UTF8
		case "ISO-8859-1", "windows-1252":
			return Windows1252
		case "ISO-8859-9":
			return ISO8859_9
		}
	}

	return Windows1252
}

func decoder(c Charset) *textencoding.Decoder {
	switch c {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case Windows1252:
		return charmap.Windows1252.NewDecoder()
	case ISO8859_9:
		return charmap.ISO8859_9.NewDecoder()
	}

	return nil
}

// NewUTF8Reader detects the encoding of r and returns a reader that yields UTF-8, together with
// the detected charset. A UTF-8 BOM is stripped.
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	if len(buf) == sniffSize {
		buf = trimPartialRune(buf)
	}

	charset := Detect(buf)

	if charset == UTF8BOM {
		_, _ = br.Discard(len(bomUTF8))
		return br, charset, nil
	}

	if dec := decoder(charset); dec != nil {
		return transform.NewReader(br, dec), charset, nil
	}

	return br, charset, nil
}

// trimPartialRune drops a multi-byte sequence cut off at the end of sample.
func trimPartialRune(sample []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(sample); i++ {
		if !utf8.RuneStart(sample[len(sample)-i]) {
			continue
		}

		if !utf8.FullRune(sample[len(sample)-i:]) {
			return sample[:len(sample)-i]
		}

		break
	}

	return sample
}
