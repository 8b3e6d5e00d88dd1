package extract

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractPlain decodes content as UTF-8. Invalid sequences become U+FFFD.
// A leading byte order mark is dropped, and a UTF-16 BOM switches decoding to UTF-16.
func extractPlain(content []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, content)
	if err != nil {
		return "", fmt.Errorf("%w: decode text: %v", ErrMalformed, err)
	}
	return string(out), nil
}
