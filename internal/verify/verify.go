package verify

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Status is the outcome of checking one digest against the expected set.
type Status int

const (
	NotVerified Status = iota
	Match
	Mismatch
)

func (s Status) String() string {
	switch s {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "not verified"
	}
}

// ExpectedSet holds expected digests with case-insensitive membership.
// The zero value is an empty set, which disables verification.
type ExpectedSet struct {
	keys    map[string]struct{}
	entries []string
}

func NewExpectedSet(hashes ...string) *ExpectedSet {
	es := &ExpectedSet{}
	for _, h := range hashes {
		es.Add(h)
	}
	return es
}

// Add inserts a value; values differing only in case are stored once.
func (es *ExpectedSet) Add(value string) {
	if value == "" {
		return
	}
	if es.keys == nil {
		es.keys = make(map[string]struct{})
	}
	key := strings.ToLower(value)
	if _, ok := es.keys[key]; ok {
		return
	}
	es.keys[key] = struct{}{}
	es.entries = append(es.entries, value)
}

func (es *ExpectedSet) Contains(value string) bool {
	if es == nil {
		return false
	}
	_, ok := es.keys[strings.ToLower(value)]
	return ok
}

func (es *ExpectedSet) Len() int {
	if es == nil {
		return 0
	}
	return len(es.entries)
}

// Entries returns the values in insertion order, with their original case.
func (es *ExpectedSet) Entries() []string {
	if es == nil {
		return nil
	}
	return append([]string(nil), es.entries...)
}

// Check compares a computed digest against the set.
func Check(computedHex string, expected *ExpectedSet) Status {
	if expected.Len() == 0 {
		return NotVerified
	}
	if expected.Contains(computedHex) {
		return Match
	}
	return Mismatch
}

var (
	pureHex     = regexp.MustCompile(`^[a-fA-F0-9]+$`)
	embeddedHex = regexp.MustCompile(`[a-fA-F0-9]{32,128}`)
)

// Parse builds an expected set from free-form text: bare digest lists or
// check files in the "digest *filename" / "digest  filename" layouts.
//
// For each line the first token (split on whitespace and '*') is taken
// when it is pure hex. Otherwise the first 32-128 character hex run in the
// line is used, and failing that the trimmed line itself. Lines starting
// with ';' or '#' are comments.
func Parse(text string) *ExpectedSet {
	es, _ := ParseReader(strings.NewReader(text))
	return es
}

// ParseReader is Parse over a stream, such as a loaded check file.
func ParseReader(r io.Reader) (*ExpectedSet, error) {
	es := NewExpectedSet()

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if value, ok := parseLine(line); ok {
			es.Add(value)
		}
		if err == io.EOF {
			return es, nil
		}
		if err != nil {
			return es, err
		}
	}
}

func parseLine(line string) (string, bool) {
	clean := strings.TrimSpace(line)
	if clean == "" {
		return "", false
	}
	if strings.HasPrefix(clean, ";") || strings.HasPrefix(clean, "#") {
		return "", false
	}

	tokens := strings.FieldsFunc(clean, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '*'
	})
	if len(tokens) == 0 {
		return "", false
	}

	if pureHex.MatchString(tokens[0]) {
		return tokens[0], true
	}
	if match := embeddedHex.FindString(clean); match != "" {
		return match, true
	}
	return clean, true
}
