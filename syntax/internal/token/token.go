package token

import (
	"strings"
	"unicode"

	"github.com/wippyai/noasync/errors"
)

type Type int

const (
	EOF Type = iota
	Newline
	Ident
	Keyword
	Int
	Float
	String
	Op
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Newline:
		return "newline"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Op:
		return "operator"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
	Col   int
}

// Is reports whether t is the operator or keyword v.
func (t Token) Is(v string) bool {
	return (t.Type == Op || t.Type == Keyword) && t.Value == v
}

func (t Token) String() string {
	switch t.Type {
	case EOF, Newline:
		return t.Type.String()
	case String:
		return "string " + quoteForError(t.Value)
	}
	return "'" + t.Value + "'"
}

func quoteForError(s string) string {
	if len(s) > 16 {
		s = s[:16] + "..."
	}
	return "\"" + s + "\""
}

var keywords = map[string]bool{
	"def": true, "class": true, "async": true, "await": true,
	"return": true, "if": true, "elif": true, "else": true,
	"while": true, "for": true, "in": true, "break": true,
	"continue": true, "pass": true, "raise": true,
	"and": true, "or": true, "not": true,
	"True": true, "False": true, "None": true,
}

// IsKeyword reports whether s is reserved.
func IsKeyword(s string) bool { return keywords[s] }

// two-character operators, checked before single characters
var ops2 = []string{"==", "!=", "<=", ">=", "//", "+=", "-=", "->"}

const ops1 = "()[]{},.:=<>+-*/%@"

// Tokenize splits input into tokens. Newlines inside () and [] are dropped
// and ';' is reported as a Newline.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	depth := 0
	runes := []rune(input)

	emit := func(v string, t Type, c int) {
		tokens = append(tokens, Token{Value: v, Type: t, Line: line, Col: c})
	}

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\n' {
			if depth == 0 {
				emit("\n", Newline, col)
			}
			line++
			col = 1
			i++
			continue
		}
		if unicode.IsSpace(r) {
			i++
			col++
			continue
		}

		// Line comment
		if r == '#' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			continue
		}

		if r == ';' {
			emit(";", Newline, col)
			i++
			col++
			continue
		}

		start := i
		startCol := col

		// String literal
		if r == '"' || r == '\'' {
			quote := r
			var b strings.Builder
			i++
			for {
				if i >= len(runes) || runes[i] == '\n' {
					return nil, errors.Syntax("", line, "unterminated string literal")
				}
				c := runes[i]
				if c == quote {
					i++
					break
				}
				if c == '\\' && i+1 < len(runes) {
					i++
					switch runes[i] {
					case 'n':
						b.WriteRune('\n')
					case 't':
						b.WriteRune('\t')
					case 'r':
						b.WriteRune('\r')
					case '0':
						b.WriteRune(0)
					default:
						b.WriteRune(runes[i])
					}
					i++
					continue
				}
				b.WriteRune(c)
				i++
			}
			col += i - start
			emit(b.String(), String, startCol)
			continue
		}

		// Number
		if unicode.IsDigit(r) {
			typ := Int
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			if i+1 < len(runes) && runes[i] == '.' && unicode.IsDigit(runes[i+1]) {
				typ = Float
				i++
				for i < len(runes) && unicode.IsDigit(runes[i]) {
					i++
				}
			}
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && unicode.IsDigit(runes[j]) {
					typ = Float
					i = j
					for i < len(runes) && unicode.IsDigit(runes[i]) {
						i++
					}
				}
			}
			col += i - start
			emit(strings.ReplaceAll(string(runes[start:i]), "_", ""), typ, startCol)
			continue
		}

		// Identifier or keyword
		if r == '_' || unicode.IsLetter(r) {
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			word := string(runes[start:i])
			col += i - start
			if keywords[word] {
				emit(word, Keyword, startCol)
			} else {
				emit(word, Ident, startCol)
			}
			continue
		}

		// Operators
		if i+1 < len(runes) {
			pair := string(runes[i : i+2])
			matched := false
			for _, op := range ops2 {
				if pair == op {
					emit(op, Op, startCol)
					i += 2
					col += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		if strings.ContainsRune(ops1, r) {
			switch r {
			case '(', '[':
				depth++
			case ')', ']':
				if depth > 0 {
					depth--
				}
			}
			emit(string(r), Op, startCol)
			i++
			col++
			continue
		}

		return nil, errors.Syntax("", line, "unexpected character %q", r)
	}

	tokens = append(tokens, Token{Type: EOF, Line: line, Col: col})
	return tokens, nil
}
