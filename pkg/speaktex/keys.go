package speaktex

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	uploadKeyPrefix = "uploads/"
	resultKeyPrefix = "results/"
)

// NewUploadKey generates a globally unique object key for an uploaded audio
// file: uploads/<UTC timestamp>_<uuid>/<filename>. The key is the correlation
// id for the whole pipeline and is never regenerated.
func NewUploadKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s%s_%s/%s",
		uploadKeyPrefix,
		now.UTC().Format("20060102_150405"),
		uuid.New().String(),
		sanitizeFilename(filename),
	)
}

// sanitizeFilename keeps client-supplied filenames from escaping or breaking
// the key layout: path separators and non-printable runes become dashes.
func sanitizeFilename(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r == '/' || r == '\\' || r < 0x20 || r == 0x7f:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DeriveResultKey maps an upload key to the key of its processing result:
// the uploads/ segment becomes results/ and the file extension becomes
// .json. Pure function of its input, so pollers need no mapping table.
func DeriveResultKey(uploadKey string) string {
	key := uploadKey
	if strings.HasPrefix(key, uploadKeyPrefix) {
		key = resultKeyPrefix + strings.TrimPrefix(key, uploadKeyPrefix)
	}
	if ext := path.Ext(key); ext != "" {
		key = strings.TrimSuffix(key, ext)
	}
	return key + ".json"
}

// IsUploadKey reports whether the key follows the uploads/ layout.
func IsUploadKey(key string) bool {
	rest := strings.TrimPrefix(key, uploadKeyPrefix)
	return rest != key && rest != "" && !strings.HasPrefix(rest, "/")
}

// MediaFormatForKey infers the transcription media format from the upload
// key's file extension. Defaults to webm, the recorder's native container.
func MediaFormatForKey(uploadKey string) string {
	ext := strings.TrimPrefix(path.Ext(uploadKey), ".")
	if ext == "" {
		return "webm"
	}
	return strings.ToLower(ext)
}
