package hashid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Tags namespace the identifier space per entity class. The tag is also
// mixed into the digest, so two classes can never collide even when their
// raw payloads are byte-identical.
const (
	TagDocument       = "doc_"
	TagParsedContent  = "parsed_content_"
	TagParsedImage    = "parsed_image_"
	TagParsedMarkdown = "parsed_markdown_"
)

// Compute derives the content address for payload under tag: the tag
// followed by the hex SHA-256 of tag, a zero byte, and the payload.
// Deterministic and pure; equal inputs yield equal identifiers across
// process restarts.
func Compute(payload, tag string) string {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write([]byte{0})
	h.Write([]byte(payload))
	return tag + hex.EncodeToString(h.Sum(nil))
}

// ComputeJSON derives the content address for a JSON-shaped value by
// hashing its canonical serialization. encoding/json emits map keys in
// sorted order, so logically identical items hash identically regardless
// of the field order in the parser's output file.
func ComputeJSON(v any, tag string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize content for hashing: %w", err)
	}
	return Compute(string(data), tag), nil
}
