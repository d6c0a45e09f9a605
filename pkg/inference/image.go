package inference

import (
	"encoding/base64"
	"strings"

	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// EncodeDataURL renders img as a data URL, the form the classifier expects.
func EncodeDataURL(img *frame.NormalizedImage) string {
	format := img.Format
	if format == "" {
		format = "image/jpeg"
	}
	return "data:" + format + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// DecodeDataURL extracts the payload bytes from a base64 data URL.
// A bare base64 string is accepted as well.
func DecodeDataURL(s string) ([]byte, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
