package sqlcheck

import "unicode"

type tokenKind int

const (
	tokenWord   tokenKind = iota // bare identifier or keyword
	tokenQuoted                  // "quoted identifier", quotes stripped
	tokenNumber
	tokenSymbol
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits SQL into coarse tokens. String literals and comments are
// dropped entirely so their contents never trip keyword or identifier checks.
// Dotted references like p.close_date yield separate word tokens.
func tokenize(sqlText string) []token {
	var tokens []token
	runes := []rune(sqlText)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'':
			i = skipStringLiteral(runes, i)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			i = skipLineComment(runes, i)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i = skipBlockComment(runes, i)
		case r == '"':
			var text string
			text, i = readQuotedIdent(runes, i)
			tokens = append(tokens, token{kind: tokenQuoted, text: text})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(runes[start:i])})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E') {
				i++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(runes[start:i])})
		default:
			tokens = append(tokens, token{kind: tokenSymbol, text: string(r)})
			i++
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// skipStringLiteral advances past a single-quoted literal, honoring the
// doubled-quote escape. On an unterminated literal it consumes the rest of
// the input.
func skipStringLiteral(runes []rune, start int) int {
	i := start + 1
	for i < len(runes) {
		if runes[i] == '\'' {
			if i+1 < len(runes) && runes[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipLineComment(runes []rune, start int) int {
	i := start + 2
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(runes []rune, start int) int {
	i := start + 2
	for i+1 < len(runes) {
		if runes[i] == '*' && runes[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(runes)
}

func readQuotedIdent(runes []rune, start int) (string, int) {
	i := start + 1
	var text []rune
	for i < len(runes) {
		if runes[i] == '"' {
			if i+1 < len(runes) && runes[i+1] == '"' {
				text = append(text, '"')
				i += 2
				continue
			}
			return string(text), i + 1
		}
		text = append(text, runes[i])
		i++
	}
	return string(text), i
}

// sqlKeywords lists words that are part of the query language rather than
// schema references. DuckDB type names and common scalar keywords are
// included so CAST targets and date literals pass the identifier check.
var sqlKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "by": {}, "order": {},
	"having": {}, "limit": {}, "offset": {}, "with": {}, "as": {}, "on": {},
	"join": {}, "inner": {}, "left": {}, "right": {}, "full": {}, "outer": {},
	"cross": {}, "natural": {}, "using": {}, "union": {}, "all": {},
	"intersect": {}, "except": {}, "distinct": {}, "and": {}, "or": {},
	"not": {}, "in": {}, "is": {}, "null": {}, "like": {}, "ilike": {},
	"between": {}, "exists": {}, "any": {}, "some": {}, "case": {},
	"when": {}, "then": {}, "else": {}, "end": {}, "asc": {}, "desc": {},
	"nulls": {}, "first": {}, "last": {}, "true": {}, "false": {},
	"cast": {}, "interval": {}, "over": {}, "partition": {}, "rows": {},
	"range": {}, "preceding": {}, "following": {}, "unbounded": {},
	"current": {}, "row": {}, "filter": {}, "qualify": {}, "escape": {},
	"date": {}, "time": {}, "timestamp": {}, "epoch": {}, "year": {},
	"month": {}, "day": {}, "hour": {}, "minute": {}, "second": {},
	"quarter": {}, "week": {}, "varchar": {}, "text": {}, "integer": {},
	"int": {}, "bigint": {}, "smallint": {}, "double": {}, "float": {},
	"real": {}, "decimal": {}, "numeric": {}, "boolean": {}, "bool": {},
	"current_date": {}, "current_timestamp": {}, "current_time": {},
	"recursive": {}, "lateral": {}, "values": {}, "fetch": {}, "next": {},
	"only": {}, "ties": {}, "collate": {}, "similar": {}, "to": {},
}
