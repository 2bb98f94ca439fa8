package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Section is a named, delimited sub-block of a prompt document.
// Order is significant; headers are not required to be unique, so
// editing always targets a section by position, never by header.
type Section struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

// Implicit headers. PREAMBLE covers text before the first marker,
// RAW PROMPT covers a document with no markers at all. Neither emits
// a marker line on reconstruction.
const (
	HeaderPreamble  = "PREAMBLE"
	HeaderRawPrompt = "RAW PROMPT"
)

// Marker grammar: a full line of the form `=== LABEL ===` where LABEL
// is uppercase letters, digits, spaces, and the characters -().
var markerPattern = regexp.MustCompile(`^=== ([A-Z0-9()\- ]+) ===$`)

// Parse splits a flat prompt document into its ordered sections.
//
// Text between the start (or the previous marker) and the next marker
// becomes a section headed by the most recently seen marker label, or
// PREAMBLE if none has been seen yet. A document with zero markers
// yields a single RAW PROMPT section containing the whole text
// verbatim, so unstructured prompts are never trimmed or rewrapped.
// Sections whose trimmed content is empty are dropped.
func Parse(text string) []Section {
	lines := strings.Split(text, "\n")

	hasMarker := false
	for _, line := range lines {
		if markerPattern.MatchString(line) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Section{{Header: HeaderRawPrompt, Content: text}}
	}

	var sections []Section
	header := HeaderPreamble
	var body []string

	flush := func() {
		content := strings.Join(body, "\n")
		// One trailing empty line is the separator before the next
		// marker, not part of the section body.
		content = strings.TrimSuffix(content, "\n")
		if strings.TrimSpace(content) != "" {
			sections = append(sections, Section{Header: header, Content: content})
		}
		body = body[:0]
	}

	for _, line := range lines {
		if m := markerPattern.FindStringSubmatch(line); m != nil {
			flush()
			header = m[1]
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// Reconstruct renders sections back into the flat document text.
// Sections are always joined by a blank line, so a document whose
// markers ran back-to-back without one is canonicalized on the first
// pass through Parse+Reconstruct; the result is then a fixed point:
// reconstruct(parse(text)) == text for any text Reconstruct produced.
func Reconstruct(sections []Section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Header == HeaderPreamble || s.Header == HeaderRawPrompt {
			parts = append(parts, s.Content)
			continue
		}
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", s.Header, s.Content))
	}
	return strings.Join(parts, "\n\n")
}

// SetSectionContent replaces the content of the section at index and
// returns the updated sections together with the reconstructed flat
// text. All other sections keep their header, content and position.
func SetSectionContent(sections []Section, index int, content string) ([]Section, string, error) {
	if index < 0 || index >= len(sections) {
		return nil, "", fmt.Errorf("section index %d out of range (have %d sections)", index, len(sections))
	}
	updated := make([]Section, len(sections))
	copy(updated, sections)
	updated[index].Content = content
	return updated, Reconstruct(updated), nil
}
