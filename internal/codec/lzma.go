package codec

import (
	"bytes"
	"io"
	"strings"

	"github.com/ulikunitz/xz/lzma"
)

// LZMA produces the classic .lzma stream, which the browser client's LZMA
// implementation reads and writes.
type LZMA struct{}

func (LZMA) Compress(text string) ([]byte, error) {
	var buf bytes.Buffer

	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, strings.NewReader(text)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (LZMA) Decompress(data []byte) (string, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, r); err != nil {
		return "", err
	}

	return sb.String(), nil
}
