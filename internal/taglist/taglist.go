// Package taglist parses DKIM-style tag=value lists as defined in
// RFC 6376 §3.2 and shared by the ARC header fields (RFC 8617 §4.1).
package taglist

import (
	"errors"
	"fmt"
	"strings"
)

// Limits applied during parsing to reject pathological input.
const (
	maxTagLen   = 100
	maxValueLen = 1000
)

// ErrMalformed is returned for input that is not a tag=value list.
var ErrMalformed = errors.New("malformed tag-value list")

// Tag is a single tag=value pair.
type Tag struct {
	Name  string
	Value string
}

// List holds the parsed tags of one header field in input order.
// A duplicate tag name marks the list bad but does not stop the parse;
// RFC 6376 §3.2 forbids duplicates and the caller decides the severity.
type List struct {
	tags      []Tag
	duplicate bool
}

// Parse parses s as a tag=value list with folding-whitespace tolerance.
// Tag names are lowercased; values keep their inner bytes and lose only
// the surrounding whitespace. The first instance of a duplicated tag wins.
func Parse(s string) (*List, error) {
	l := &List{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: tag %q has no value", ErrMalformed, strings.TrimSpace(name))
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("%w: empty tag name", ErrMalformed)
		}
		if len(name) > maxTagLen {
			return nil, fmt.Errorf("%w: tag name too long", ErrMalformed)
		}

		value = strings.TrimSpace(value)
		if len(value) > maxValueLen {
			return nil, fmt.Errorf("%w: value of tag %q too long", ErrMalformed, name)
		}

		if l.Has(name) {
			l.duplicate = true
			continue
		}
		l.tags = append(l.tags, Tag{Name: name, Value: value})
	}
	return l, nil
}

// Get returns the value of the named tag, or the empty string if the
// tag is absent. Names are matched in lowercase.
func (l *List) Get(name string) string {
	for _, t := range l.tags {
		if t.Name == name {
			return t.Value
		}
	}
	return ""
}

// Has reports whether the named tag is present, even with an empty value.
func (l *List) Has(name string) bool {
	for _, t := range l.tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Duplicate reports whether any tag name appeared more than once.
func (l *List) Duplicate() bool {
	return l.duplicate
}

// Tags returns the parsed tags in input order.
func (l *List) Tags() []Tag {
	return l.tags
}
