// Package httprange parses single byte-range requests for media playback.
//
// Parsing is lenient on purpose: anything that is not a well-formed single
// range is reported as "no range" so the caller serves the full body, which
// browser video elements handle better than a 400.
package httprange

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsatisfiable means the range starts at or past the end of the resource.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte span.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a resource of size bytes.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// UnsatisfiedContentRange is the Content-Range value sent with a 416.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// Parse interprets a Range header against a resource of size bytes.
// ok is false when the full resource should be served.
//
// Supported forms: "bytes=start-end", "bytes=start-", "bytes=-suffix".
// An end past the resource is clamped to size-1.
func Parse(header string, size int64) (r Range, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" || size < 0 {
		return Range{}, false, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(strings.ToLower(header), prefix) {
		return Range{}, false, nil
	}
	byteRange := strings.TrimSpace(header[len(prefix):])
	if byteRange == "" || strings.Contains(byteRange, ",") {
		return Range{}, false, nil
	}

	startStr, endStr, found := strings.Cut(byteRange, "-")
	if !found {
		return Range{}, false, nil
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || n <= 0 {
			return Range{}, false, nil
		}
		if size == 0 {
			return Range{}, false, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return Range{Start: size - n, End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 {
		return Range{}, false, nil
	}
	end := size - 1
	if endStr != "" {
		e, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || e < start {
			return Range{}, false, nil
		}
		end = e
	}
	if start >= size {
		return Range{}, false, ErrUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return Range{Start: start, End: end}, true, nil
}

// VideoContentType maps a stored file name to its media type. Only .mp4 is
// distinguished; every other recording is WebM.
func VideoContentType(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".mp4") {
		return "video/mp4"
	}
	return "video/webm"
}
