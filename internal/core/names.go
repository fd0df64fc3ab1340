package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeWorkerName trims, collapses inner whitespace and title-cases a
// free-text worker name so "bob ", "Bob" and " BOB" share the key "Bob".
func NormalizeWorkerName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.Und).String(strings.Join(fields, " "))
}
