// Package preprocessor prepares SQL scripts for execution. Its job is
// splitting a script into statements on top-level semicolons: semicolons
// inside string literals, quoted identifiers, comments and dollar-quoted
// bodies never end a statement. Each statement keeps its line number in the
// original script so execution errors can point at the right place.
package preprocessor

import (
	"strings"
	"unicode/utf8"

	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// Quirks selects the lexical extras of a SQL dialect on top of the common
// base syntax ('...' strings with '' escape, "..." identifiers, -- line
// comments, /* */ block comments with nesting).
type Quirks struct {
	// DollarQuotes enables PostgreSQL $tag$ ... $tag$ string bodies.
	DollarQuotes bool

	// HashComments enables MySQL # line comments.
	HashComments bool

	// BacktickQuotes enables MySQL `identifier` quoting.
	BacktickQuotes bool
}

// QuirksForDialect returns the lexical quirks for a dialect registry name.
// Unknown names get the conservative base syntax.
func QuirksForDialect(name string) Quirks {
	switch name {
	case ifxbridge.DialectPostgres, ifxbridge.DialectCloudSQLPostgres:
		return Quirks{DollarQuotes: true}
	case ifxbridge.DialectMySQL:
		return Quirks{HashComments: true, BacktickQuotes: true}
	default:
		return Quirks{}
	}
}

// Statement is one executable statement of a script.
type Statement struct {
	// SQL is the statement text with surrounding whitespace trimmed and the
	// terminating semicolon removed. Comments inside the statement are kept.
	SQL string

	// Line is the 1-based line in the original script where the statement
	// text begins.
	Line int
}

// Splitter splits SQL scripts into statements.
type Splitter struct {
	quirks Quirks
}

// NewSplitter creates a Splitter for the given dialect quirks.
func NewSplitter(quirks Quirks) *Splitter {
	return &Splitter{quirks: quirks}
}

// lexState is the current region of the script during the scan.
type lexState int

const (
	stateCode lexState = iota
	stateSingleQuote
	stateDoubleQuote
	stateBacktick
	stateLineComment
	stateBlockComment
	stateDollarQuote
)

// Split cuts script on top-level semicolons and drops fragments that hold
// no executable content (blank or comment-only). A missing semicolon after
// the last statement is tolerated.
func (s *Splitter) Split(script string) []Statement {
	var stmts []Statement

	for _, bound := range s.boundaries(script) {
		fragment := script[bound[0]:bound[1]]
		if !s.hasExecutableContent(fragment) {
			continue
		}

		leading := len(fragment) - len(strings.TrimLeft(fragment, " \t\r\n"))
		stmts = append(stmts, Statement{
			SQL:  strings.TrimSpace(fragment),
			Line: 1 + strings.Count(script[:bound[0]+leading], "\n"),
		})
	}

	return stmts
}

// boundaries returns the [start, end) byte ranges of the semicolon-separated
// fragments of script. Scanning is byte-wise: every delimiter is ASCII, so
// multi-byte UTF-8 sequences pass through untouched.
func (s *Splitter) boundaries(script string) [][2]int {
	var bounds [][2]int

	start := 0
	state := stateCode
	blockDepth := 0
	dollarTag := ""

	for i := 0; i < len(script); i++ {
		c := script[i]
		rest := script[i:]

		switch state {
		case stateCode:
			switch {
			case c == ';':
				bounds = append(bounds, [2]int{start, i})
				start = i + 1
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '`' && s.quirks.BacktickQuotes:
				state = stateBacktick
			case c == '#' && s.quirks.HashComments:
				state = stateLineComment
			case strings.HasPrefix(rest, "--"):
				state = stateLineComment
				i++
			case strings.HasPrefix(rest, "/*"):
				state = stateBlockComment
				blockDepth = 1
				i++
			case c == '$' && s.quirks.DollarQuotes:
				if tag := dollarTagAt(script, i); tag != "" {
					state = stateDollarQuote
					dollarTag = tag
					i += len(tag) - 1
				}
			}

		case stateSingleQuote:
			if c == '\'' {
				// '' is an escaped quote, not the end of the string.
				if strings.HasPrefix(rest, "''") {
					i++
				} else {
					state = stateCode
				}
			}

		case stateDoubleQuote:
			if c == '"' {
				state = stateCode
			}

		case stateBacktick:
			if c == '`' {
				state = stateCode
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}

		case stateBlockComment:
			if strings.HasPrefix(rest, "/*") {
				blockDepth++
				i++
			} else if strings.HasPrefix(rest, "*/") {
				blockDepth--
				i++
				if blockDepth == 0 {
					state = stateCode
				}
			}

		case stateDollarQuote:
			if strings.HasPrefix(rest, dollarTag) {
				i += len(dollarTag) - 1
				state = stateCode
				dollarTag = ""
			}
		}
	}

	if start < len(script) {
		bounds = append(bounds, [2]int{start, len(script)})
	}

	return bounds
}

// hasExecutableContent reports whether the fragment contains anything
// besides whitespace and comments.
func (s *Splitter) hasExecutableContent(fragment string) bool {
	state := stateCode
	blockDepth := 0

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		rest := fragment[i:]

		switch state {
		case stateCode:
			switch {
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			case c == '#' && s.quirks.HashComments:
				state = stateLineComment
			case strings.HasPrefix(rest, "--"):
				state = stateLineComment
				i++
			case strings.HasPrefix(rest, "/*"):
				state = stateBlockComment
				blockDepth = 1
				i++
			default:
				return true
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}

		case stateBlockComment:
			if strings.HasPrefix(rest, "/*") {
				blockDepth++
				i++
			} else if strings.HasPrefix(rest, "*/") {
				blockDepth--
				i++
				if blockDepth == 0 {
					state = stateCode
				}
			}
		}
	}

	return false
}

// dollarTagAt returns the $tag$ opener starting at byte i, or "" when the
// text at i is not a dollar-quote opener. Tag characters are letters,
// digits, underscores and any non-ASCII rune.
func dollarTagAt(script string, i int) string {
	if script[i] != '$' {
		return ""
	}

	for j := i + 1; j < len(script); j++ {
		c := script[j]
		switch {
		case c == '$':
			return script[i : j+1]
		case c == '_' || c >= utf8.RuneSelf || isAlnum(c):
		default:
			return ""
		}
	}

	return ""
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
