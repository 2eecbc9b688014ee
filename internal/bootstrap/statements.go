// Package bootstrap applies the embedded schema script to the backend database.
package bootstrap

import (
	_ "embed"
	"strings"
	"unicode"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded bootstrap script.
func Schema() string {
	return schemaSQL
}

// Statements splits a SQL script on top-level semicolons. Semicolons inside
// quoted strings, quoted identifiers, dollar-quoted bodies and comments do not
// terminate a statement. Statements holding nothing but comments are dropped.
func Statements(script string) []string {
	var (
		out     []string
		current strings.Builder
		hasCode bool
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if hasCode && stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(script); {
		ch := script[i]
		switch {
		case ch == '-' && strings.HasPrefix(script[i:], "--"):
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				end = len(script) - i
			}
			current.WriteString(script[i : i+end])
			i += end
		case ch == '/' && strings.HasPrefix(script[i:], "/*"):
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				current.WriteString(script[i:])
				i = len(script)
				continue
			}
			current.WriteString(script[i : i+2+end+2])
			i += 2 + end + 2
		case ch == '\'' || ch == '"':
			end := closingQuote(script, i, ch)
			current.WriteString(script[i:end])
			hasCode = true
			i = end
		case ch == '$':
			tag, ok := dollarTag(script[i:])
			if !ok {
				current.WriteByte(ch)
				hasCode = true
				i++
				continue
			}
			body := strings.Index(script[i+len(tag):], tag)
			end := len(script)
			if body >= 0 {
				end = i + len(tag) + body + len(tag)
			}
			current.WriteString(script[i:end])
			hasCode = true
			i = end
		case ch == ';':
			flush()
			i++
		default:
			current.WriteByte(ch)
			if !unicode.IsSpace(rune(ch)) {
				hasCode = true
			}
			i++
		}
	}
	flush()
	return out
}

// closingQuote returns the index just past the quote that closes the one at start.
// Doubled quotes are escapes.
func closingQuote(script string, start int, quote byte) int {
	for i := start + 1; i < len(script); i++ {
		if script[i] != quote {
			continue
		}
		if i+1 < len(script) && script[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(script)
}

// dollarTag recognises $$ and $name$ openers. Positional parameters like $1 are not tags.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		if c == '_' || unicode.IsLetter(rune(c)) || (i > 1 && unicode.IsDigit(rune(c))) {
			continue
		}
		return "", false
	}
	return "", false
}
