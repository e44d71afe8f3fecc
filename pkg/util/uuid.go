package util

import (
	"io"

	"github.com/google/uuid"
)

// NamespaceJXL scopes content ids derived from image bytes
var NamespaceJXL = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:jxl.go:image"))

// ContentID returns a stable name-based (v5) UUID for the given bytes
func ContentID(data []byte) string {
	return uuid.NewSHA1(NamespaceJXL, data).String()
}

// ReadContentID reads r to the end and returns the ContentID of its bytes
// together with the bytes themselves.
func ReadContentID(r io.Reader) (string, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, err
	}
	return ContentID(data), data, nil
}

// CorrelationID returns a random id used to tie together the log lines of
// one decode call
func CorrelationID() string {
	return uuid.NewString()
}
