// Package segment decomposes a raw agent response into the ordered
// typed segments the delivery pacer replays.
//
// A response is split on an explicit part-break marker; within each
// part, at most one embedded image directive is recognized and the
// surrounding text is emitted line by line. Malformed input never
// fails - it degrades to plain text segments.
package segment

import (
	"regexp"
	"strings"
)

// PartBreakMarker separates the parts of a multi-message response.
const PartBreakMarker = "||PART_BREAK||"

// imageDirectiveRe matches one embedded image directive. Non-greedy
// and allowed to span newlines.
var imageDirectiveRe = regexp.MustCompile(`(?s)\[IMAGE_PROMPT:\s*(.*?)\]`)

// Kind discriminates segment types.
type Kind string

const (
	// KindText is a single chat-bubble line of text.
	KindText Kind = "text"
	// KindImageDirective carries the inner prompt of an image directive.
	KindImageDirective Kind = "image_directive"
)

// Segment is one atomic unit of an agent response.
type Segment struct {
	Kind    Kind
	Content string
}

// Text builds a text segment.
func Text(content string) Segment {
	return Segment{Kind: KindText, Content: content}
}

// ImageDirective builds an image directive segment.
func ImageDirective(content string) Segment {
	return Segment{Kind: KindImageDirective, Content: content}
}

// Split decomposes a raw response into ordered segments.
//
// Only the first image directive in each part is treated as a
// directive; any further directive markup in the same part is carried
// through as literal text.
func Split(raw string) []Segment {
	var out []Segment
	for _, part := range strings.Split(raw, PartBreakMarker) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		loc := imageDirectiveRe.FindStringSubmatchIndex(part)
		if loc == nil {
			out = appendTextLines(out, part)
			continue
		}

		out = appendTextLines(out, part[:loc[0]])
		out = append(out, ImageDirective(strings.TrimSpace(part[loc[2]:loc[3]])))
		out = appendTextLines(out, part[loc[1]:])
	}
	return out
}

// appendTextLines splits text into trimmed non-blank lines, emitting
// each as its own text segment.
func appendTextLines(segs []Segment, text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return segs
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			segs = append(segs, Text(line))
		}
	}
	return segs
}
