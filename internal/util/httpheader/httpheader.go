// Package httpheader parses the HTTP validators and range headers used by
// resumable transfers.
package httpheader

import (
	"fmt"
	"strconv"
	"strings"
)

// CleanETag removes the weak prefix and quotes from an ETag value
func CleanETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}

// IsWeakETag reports whether etag is a weak validator
func IsWeakETag(etag string) bool {
	return strings.HasPrefix(strings.TrimSpace(etag), "W/")
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total is -1 if unknown.
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total or bytes start-end/*
	value := strings.TrimPrefix(strings.TrimSpace(header), "bytes ")
	rangePart, totalPart, ok := strings.Cut(value, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	startPart, endPart, ok := strings.Cut(rangePart, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err = strconv.ParseInt(startPart, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}

	end, err = strconv.ParseInt(endPart, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if totalPart == "*" {
		return start, end, -1, nil
	}
	total, err = strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}

	return start, end, total, nil
}
