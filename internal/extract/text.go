package extract

import (
	"fmt"
	"unicode/utf8"
)

// PlainText decodes UTF-8 bytes unchanged.
func PlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrCorrupt)
	}
	return string(data), nil
}
