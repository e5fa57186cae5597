package encode

import (
	"encoding/json"
	"io"
)

// JSON writes v to w indented by two spaces. HTML is left unescaped since
// mock payloads are echoed back to clients verbatim.
func JSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return encoder.Encode(v)
}
