package extract

import (
	"regexp"
	"strings"

	whatwg "github.com/nlnwa/whatwg-url/url"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

var urlPattern = regexp.MustCompile("(?i)https?://[^\\s<>\"'`|]+")

// joinedURL finds a comma that directly starts another URL, as in
// "https://a.example/,https://b.example/".
var joinedURL = regexp.MustCompile(`(?i),https?://`)

// closers maps a closing bracket to its opener. A trailing closer is only
// part of the URL when the URL also contains the matching opener.
var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

const trailingPunct = ".,;:!?*"

// FromNote returns the distinct URLs found in free text, in order of first
// appearance.
func FromNote(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	set := newURLSet()
	set.scan(text)
	return set.urls
}

// FromPayload returns the distinct URLs found in any string value of a JSON
// document. A malformed document yields no URLs.
func FromPayload(raw []byte) []string {
	root, err := ParseNode(raw)
	if err != nil {
		return nil
	}
	set := newURLSet()
	root.WalkStrings(set.scan)
	return set.urls
}

// ForEditData returns the candidates of one edit_data row.
func ForEditData(row archiver.EditDataRow) []archiver.Candidate {
	return candidates(FromPayload(row.Payload), archiver.OriginEditData, row.EditID)
}

// ForEditNote returns the candidates of one edit_note row.
func ForEditNote(row archiver.EditNoteRow) []archiver.Candidate {
	return candidates(FromNote(row.Text), archiver.OriginEditNote, row.NoteID)
}

func candidates(urls []string, origin archiver.OriginTable, id int64) []archiver.Candidate {
	if len(urls) == 0 {
		return nil
	}
	out := make([]archiver.Candidate, 0, len(urls))
	for _, u := range urls {
		out = append(out, archiver.Candidate{URL: u, Origin: origin, OriginID: id})
	}
	return out
}

// Normalize parses raw with the WHATWG URL parser and returns its serialized
// form. Only absolute http and https URLs with a host are accepted.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := whatwg.Parse(raw)
	if err != nil {
		return "", false
	}
	switch u.Protocol() {
	case "http:", "https:":
	default:
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}
	return u.Href(false), true
}

type urlSet struct {
	seen map[string]struct{}
	urls []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) scan(text string) {
	for _, match := range urlPattern.FindAllString(text, -1) {
		for _, part := range splitJoined(match) {
			s.add(part)
		}
	}
}

func (s *urlSet) add(match string) {
	normalized, ok := Normalize(trimTrailing(match))
	if !ok {
		return
	}
	if _, dup := s.seen[normalized]; dup {
		return
	}
	s.seen[normalized] = struct{}{}
	s.urls = append(s.urls, normalized)
}

// splitJoined cuts a match at every comma that is immediately followed by
// another http or https URL.
func splitJoined(match string) []string {
	idx := joinedURL.FindAllStringIndex(match, -1)
	if len(idx) == 0 {
		return []string{match}
	}
	parts := make([]string, 0, len(idx)+1)
	start := 0
	for _, loc := range idx {
		parts = append(parts, match[start:loc[0]])
		start = loc[0] + 1
	}
	return append(parts, match[start:])
}

// trimTrailing strips sentence punctuation and unbalanced closing brackets
// from the end of a matched URL.
func trimTrailing(match string) string {
	for len(match) > 0 {
		last := match[len(match)-1]
		if strings.IndexByte(trailingPunct, last) >= 0 {
			match = match[:len(match)-1]
			continue
		}
		if opener, ok := closers[last]; ok &&
			strings.Count(match, string(last)) > strings.Count(match, string(opener)) {
			match = match[:len(match)-1]
			continue
		}
		break
	}
	return match
}
