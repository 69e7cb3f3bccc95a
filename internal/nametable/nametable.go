// Package nametable maps between protocol tokens and their numeric codes.
package nametable

import "strings"

// Entry pairs one protocol token with its code.
type Entry struct {
	Name string
	Code int
}

// Table is an ordered list of entries. The final entry is the fallback:
// its code is what Code returns for an unknown name.
type Table []Entry

// Code looks up a token case-insensitively and returns its code.
// Unknown names return the code of the table's final entry.
func (t Table) Code(name string) int {
	if len(t) == 0 {
		return 0
	}
	for _, e := range t {
		if strings.EqualFold(e.Name, name) {
			return e.Code
		}
	}
	return t[len(t)-1].Code
}

// Name returns the token for a code, or "" if the code is not present.
func (t Table) Name(code int) string {
	for _, e := range t {
		if e.Code == code {
			return e.Name
		}
	}
	return ""
}
