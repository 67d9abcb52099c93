package operator

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// encodeChunks serializes an ordered chunk list into the JSON array shape
// `splitter` publishes and `reducer` recognizes (§4.5.7). Built
// incrementally with sjson's "-1" append path rather than encoding/json so
// a chunk containing arbitrary text never needs a struct wrapper.
func encodeChunks(chunks []string) string {
	out := "[]"
	for _, c := range chunks {
		var err error
		out, err = sjson.Set(out, "-1", c)
		if err != nil {
			// sjson only fails on a malformed path, never on arbitrary
			// string values; "-1" against a JSON array literal is valid.
			return out
		}
	}
	return out
}

// decodeChunks recognizes the JSON array shape encodeChunks produces. ok is
// false for anything else, in which case the caller treats the payload as
// a single opaque chunk (§4.5.8).
func decodeChunks(s string) (chunks []string, ok bool) {
	if !gjson.Valid(s) {
		return nil, false
	}
	parsed := gjson.Parse(s)
	if !parsed.IsArray() {
		return nil, false
	}
	for _, item := range parsed.Array() {
		chunks = append(chunks, item.String())
	}
	return chunks, true
}
