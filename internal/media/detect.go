// Package media recognises and cleans uploaded product images.
package media

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWEBP Format = "webp"
	FormatAVIF Format = "avif"
	FormatSVG  Format = "svg"
)

// SniffLen is the number of leading bytes Detect looks at.
const SniffLen = 512

var ErrUnsupportedFormat = errors.New("unsupported image format")

type Kind struct {
	Format Format
	MIME   string
}

// Extension is the file extension used in object keys.
func (k Kind) Extension() string {
	if k.Format == FormatJPEG {
		return "jpg"
	}
	return string(k.Format)
}

type signature struct {
	kind  Kind
	match func(head []byte) bool
}

var signatures = []signature{
	{Kind{FormatJPEG, "image/jpeg"}, prefix(0xff, 0xd8, 0xff)},
	{Kind{FormatPNG, "image/png"}, prefix(0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n')},
	{Kind{FormatGIF, "image/gif"}, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a"))
	}},
	{Kind{FormatWEBP, "image/webp"}, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
	{Kind{FormatAVIF, "image/avif"}, func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[4:8], []byte("ftyp")) && bytes.Contains(h[8:], []byte("avif"))
	}},
	{Kind{FormatSVG, "image/svg+xml"}, func(h []byte) bool {
		trimmed := bytes.TrimSpace(h)
		if bytes.HasPrefix(trimmed, []byte("<svg")) {
			return true
		}
		return bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(bytes.ToLower(trimmed), []byte("<svg"))
	}},
}

func prefix(magic ...byte) func([]byte) bool {
	return func(h []byte) bool { return bytes.HasPrefix(h, magic) }
}

// Detect identifies the image format from the first bytes of a file.
func Detect(head []byte) (Kind, error) {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.kind, nil
		}
	}
	return Kind{}, ErrUnsupportedFormat
}

// DeclaredType returns the media type of a Content-Type header without
// parameters.
func DeclaredType(header http.Header) string {
	contentType, _, _ := strings.Cut(header.Get("Content-Type"), ";")
	return strings.ToLower(strings.TrimSpace(contentType))
}
