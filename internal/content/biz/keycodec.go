package biz

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cartelera/signage-backend/internal/content/types"
)

// Stored object keys follow the scheme {id}{sep}{title}. The separator
// is stage-specific: "-" in the uploads namespace, "_" in monitoring and
// mobile. The id therefore must not contain the stage's separator; the
// title may. Decoding splits on the first separator only.

// KeySeparator returns the id/title separator for a stage's namespace
func KeySeparator(stage types.Stage) string {
	if stage == types.StageUploads {
		return "-"
	}
	return "_"
}

// SanitizeFilename percent-decodes a client-supplied filename and
// replaces whitespace with underscores so the result is safe to embed
// in an object key. Re-encoding happens only in derived URLs.
func SanitizeFilename(name string) string {
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, "_")
}

// EncodeKey builds the stored object key for a record
func EncodeKey(stage types.Stage, id, title string) string {
	return id + KeySeparator(stage) + title
}

// DecodeKey parses a stored object key back into id and title.
// Malformed keys (no separator, empty id) yield an error; callers skip
// such keys instead of failing the whole listing.
func DecodeKey(stage types.Stage, key string) (id, title string, err error) {
	sep := KeySeparator(stage)
	idx := strings.Index(key, sep)
	if idx <= 0 {
		return "", "", fmt.Errorf("malformed %s key: %q", stage, key)
	}

	id = key[:idx]
	title = key[idx+len(sep):]
	if title == "" {
		return "", "", fmt.Errorf("malformed %s key: %q", stage, key)
	}

	// Titles arrive percent-encoded when the original client uploaded
	// an encoded filename; decode for display.
	if decoded, decErr := url.QueryUnescape(title); decErr == nil {
		title = decoded
	}

	return id, title, nil
}
