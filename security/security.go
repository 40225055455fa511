// Package security holds request-hygiene checks applied before any handler
// runs.
package security

import (
	"mime"
	"strings"
)

// Content types the API accepts on mutating requests. JSON covers the whole
// REST surface, form encoding covers webhook test tooling, multipart covers
// profile picture uploads.
var allowedContentTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
}

// ValidateContentType reports whether the Content-Type header value is
// acceptable for a mutating request. Parameters like charset and multipart
// boundaries are ignored.
func ValidateContentType(headerValue string) bool {
	mediaType, _, err := mime.ParseMediaType(headerValue)
	if err != nil {
		// Fall back to a plain prefix cut for slightly malformed headers
		mediaType = headerValue
		if idx := strings.Index(mediaType, ";"); idx >= 0 {
			mediaType = mediaType[:idx]
		}
		mediaType = strings.TrimSpace(mediaType)
	}
	return allowedContentTypes[strings.ToLower(mediaType)]
}
