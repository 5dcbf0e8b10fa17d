package database

import "strings"

// Dialect holds the lexical rules CountStatements needs to find statement
// boundaries.
type Dialect struct {
	// BackslashEscapes makes \ escape the next byte inside quoted strings.
	BackslashEscapes bool

	// HashComments treats # as the start of a line comment.
	HashComments bool

	// DashCommentNeedsSpace requires whitespace after -- for a line comment.
	DashCommentNeedsSpace bool

	// BracketIdents treats [ ... ] as a quoted identifier.
	BracketIdents bool
}

var (
	DialectSQLite   = Dialect{BracketIdents: true}
	DialectMySQL    = Dialect{BackslashEscapes: true, HashComments: true, DashCommentNeedsSpace: true}
	DialectPostgres = Dialect{}
)

// CountStatements returns how many non-empty statements sql holds, split on
// semicolons outside quotes and comments. Text made only of whitespace,
// comments and semicolons counts as zero. MySQL /*! */ comments are
// executable and count as content.
func CountStatements(sql string, d Dialect) int {
	n := 0
	content := false
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == ';':
			if content {
				n++
				content = false
			}
			i++
		case isSpace(c):
			i++
		case c == '-' && strings.HasPrefix(sql[i:], "--") &&
			(!d.DashCommentNeedsSpace || i+2 == len(sql) || isSpace(sql[i+2])):
			i = skipLine(sql, i+2)
		case c == '#' && d.HashComments:
			i = skipLine(sql, i+1)
		case c == '/' && strings.HasPrefix(sql[i:], "/*") && !strings.HasPrefix(sql[i:], "/*!"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return n + boolInt(content)
			}
			i += 2 + end + 2
		case c == '\'' || c == '"' || c == '`':
			content = true
			i = skipQuoted(sql, i, c, d.BackslashEscapes && c != '`')
		case c == '[' && d.BracketIdents:
			content = true
			if end := strings.IndexByte(sql[i+1:], ']'); end >= 0 {
				i += 1 + end + 1
			} else {
				i = len(sql)
			}
		default:
			content = true
			i++
		}
	}
	return n + boolInt(content)
}

func skipLine(s string, i int) int {
	if end := strings.IndexByte(s[i:], '\n'); end >= 0 {
		return i + end + 1
	}
	return len(s)
}

// skipQuoted returns the index after the quote closing the string opened at
// s[i]. A doubled quote is an escaped quote.
func skipQuoted(s string, i int, q byte, backslash bool) int {
	for j := i + 1; j < len(s); j++ {
		switch {
		case backslash && s[j] == '\\':
			j++
		case s[j] == q:
			if j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
