package media

import (
	"bytes"
	"errors"
	"regexp"
)

var ErrNotSVG = errors.New("not an svg document")

var (
	scriptElement  = regexp.MustCompile(`(?is)<\s*script\b.*?(?:<\s*/\s*script\s*>|/>)`)
	foreignObject  = regexp.MustCompile(`(?is)<\s*foreignObject\b.*?(?:<\s*/\s*foreignObject\s*>|/>)`)
	strayTag       = regexp.MustCompile(`(?is)<\s*/?\s*(?:script|foreignObject)\b[^>]*>?`)
	eventAttribute = regexp.MustCompile(`(?is)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	scriptHref     = regexp.MustCompile(`(?is)\s+(?:xlink:)?href\s*=\s*(?:"\s*javascript:[^"]*"|'\s*javascript:[^']*'|javascript:[^\s>]*)`)
)

// SanitizeSVG strips scripts, event handlers, embedded HTML and javascript:
// links from an SVG document. Passes repeat until nothing changes, so markup
// reassembled by an earlier removal is caught too.
func SanitizeSVG(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := input
	for {
		next := sanitizePass(clean)
		// Every pass only removes bytes, so this terminates.
		if bytes.Equal(next, clean) {
			return next, nil
		}
		clean = next
	}
}

func sanitizePass(b []byte) []byte {
	b = scriptElement.ReplaceAll(b, nil)
	b = foreignObject.ReplaceAll(b, nil)
	b = strayTag.ReplaceAll(b, nil)
	b = eventAttribute.ReplaceAll(b, nil)
	return scriptHref.ReplaceAll(b, nil)
}
