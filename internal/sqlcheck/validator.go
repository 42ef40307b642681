// Package sqlcheck statically screens SQL candidates before execution. The
// check is side-effect free: it tokenizes the candidate, never runs it, and
// never rewrites it.
package sqlcheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dealdesk/dealdesk/internal/schema"
)

// Rejection reason codes, ordered by check precedence.
const (
	ReasonWriteForbidden     = "write-operation-forbidden"
	ReasonUnknownObject      = "unknown-object"
	ReasonMultipleStatements = "multiple-statements"
	ReasonTooLong            = "statement-too-long"
)

// Verdict reports the outcome of validation. The candidate itself is never
// mutated; an accepted candidate executes exactly as generated.
type Verdict struct {
	Accepted bool
	Reason   string
	Detail   string
}

func accepted() Verdict {
	return Verdict{Accepted: true}
}

func rejected(reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

type Validator struct {
	// MaxStatementChars bounds the candidate length. Zero disables the check.
	MaxStatementChars int
}

// Validate applies the checks in order, failing fast on the first violation:
// read-only statement type, known identifiers, single statement, length.
func (v *Validator) Validate(sqlText string, descriptor schema.Descriptor) Verdict {
	tokens := tokenize(sqlText)

	if verdict := checkReadOnly(tokens); !verdict.Accepted {
		return verdict
	}
	if verdict := checkIdentifiers(tokens, descriptor); !verdict.Accepted {
		return verdict
	}
	if verdict := checkSingleStatement(tokens); !verdict.Accepted {
		return verdict
	}
	if v.MaxStatementChars > 0 && len(sqlText) > v.MaxStatementChars {
		return rejected(ReasonTooLong, fmt.Sprintf("statement is %d chars, limit is %d", len(sqlText), v.MaxStatementChars))
	}
	return accepted()
}

// writeKeywords are statement types and verbs that modify data or schema, or
// reach outside the database. Any occurrence rejects the candidate, matching
// the conservative stance of keyword screening over full parsing.
var writeKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"create": {}, "truncate": {}, "merge": {}, "grant": {}, "revoke": {},
	"attach": {}, "detach": {}, "copy": {}, "export": {}, "import": {},
	"pragma": {}, "install": {}, "call": {}, "vacuum": {},
}

func checkReadOnly(tokens []token) Verdict {
	first := firstWord(tokens)
	if first == "" {
		return rejected(ReasonWriteForbidden, "empty statement, only SELECT queries are allowed")
	}
	if first != "select" && first != "with" {
		return rejected(ReasonWriteForbidden, fmt.Sprintf("statement starts with %s, only SELECT queries are allowed", strings.ToUpper(first)))
	}
	for _, tok := range tokens {
		if tok.kind != tokenWord {
			continue
		}
		if _, bad := writeKeywords[strings.ToLower(tok.text)]; bad {
			return rejected(ReasonWriteForbidden, fmt.Sprintf("forbidden keyword %s", strings.ToUpper(tok.text)))
		}
	}
	return accepted()
}

func checkIdentifiers(tokens []token, descriptor schema.Descriptor) Verdict {
	known := knownIdentifiers(descriptor)
	aliases := collectAliases(tokens)

	unknownSet := map[string]struct{}{}
	for i, tok := range tokens {
		if tok.kind != tokenWord && tok.kind != tokenQuoted {
			continue
		}
		lowered := strings.ToLower(tok.text)
		if tok.kind == tokenWord {
			if _, ok := sqlKeywords[lowered]; ok {
				continue
			}
			// A word followed by '(' is a function call.
			if next := nextToken(tokens, i); next != nil && next.kind == tokenSymbol && next.text == "(" {
				continue
			}
		}
		if _, ok := known[lowered]; ok {
			continue
		}
		if _, ok := aliases[lowered]; ok {
			continue
		}
		unknownSet[tok.text] = struct{}{}
	}

	if len(unknownSet) == 0 {
		return accepted()
	}
	unknown := make([]string, 0, len(unknownSet))
	for name := range unknownSet {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	return rejected(ReasonUnknownObject, fmt.Sprintf("unknown identifier(s): %s", strings.Join(unknown, ", ")))
}

func checkSingleStatement(tokens []token) Verdict {
	sawSemicolon := false
	for _, tok := range tokens {
		if tok.kind == tokenSymbol && tok.text == ";" {
			sawSemicolon = true
			continue
		}
		// A trailing semicolon is tolerated, content after one is not.
		if sawSemicolon {
			return rejected(ReasonMultipleStatements, "statement batching is not allowed")
		}
	}
	return accepted()
}

func knownIdentifiers(descriptor schema.Descriptor) map[string]struct{} {
	known := make(map[string]struct{})
	for _, object := range descriptor.Objects {
		known[strings.ToLower(object.Name)] = struct{}{}
		for _, column := range object.Columns {
			known[strings.ToLower(column.Name)] = struct{}{}
		}
	}
	return known
}

// collectAliases records names the statement itself introduces: AS aliases,
// bare table aliases after FROM/JOIN, CTE names, and subquery aliases.
func collectAliases(tokens []token) map[string]struct{} {
	aliases := make(map[string]struct{})

	record := func(tok *token) {
		if tok != nil && (tok.kind == tokenWord || tok.kind == tokenQuoted) {
			if _, keyword := sqlKeywords[strings.ToLower(tok.text)]; !keyword {
				aliases[strings.ToLower(tok.text)] = struct{}{}
			}
		}
	}

	for i, tok := range tokens {
		switch {
		case tok.kind == tokenWord && strings.EqualFold(tok.text, "as"):
			next := nextToken(tokens, i)
			record(next)
			// name AS (...) introduces a CTE, record the name too.
			if next != nil && next.kind == tokenSymbol && next.text == "(" && i > 0 {
				record(&tokens[i-1])
			}
		case tok.kind == tokenWord && (strings.EqualFold(tok.text, "from") || strings.EqualFold(tok.text, "join")):
			// FROM table alias / JOIN table alias
			table := nextToken(tokens, i)
			if table == nil || (table.kind != tokenWord && table.kind != tokenQuoted) {
				continue
			}
			record(bareAliasAfter(tokens, i+1))
		case tok.kind == tokenSymbol && tok.text == ")":
			// (subquery) alias
			record(bareAliasAfter(tokens, i))
		}
	}
	return aliases
}

// bareAliasAfter returns the token at idx+1 when it reads as an implicit
// alias rather than a clause keyword or punctuation.
func bareAliasAfter(tokens []token, idx int) *token {
	next := nextToken(tokens, idx)
	if next == nil {
		return nil
	}
	if next.kind == tokenWord {
		if _, keyword := sqlKeywords[strings.ToLower(next.text)]; keyword {
			return nil
		}
		return next
	}
	if next.kind == tokenQuoted {
		return next
	}
	return nil
}

func firstWord(tokens []token) string {
	for _, tok := range tokens {
		if tok.kind == tokenWord {
			return strings.ToLower(tok.text)
		}
		if tok.kind != tokenSymbol || tok.text != "(" {
			return ""
		}
	}
	return ""
}

func nextToken(tokens []token, idx int) *token {
	if idx+1 < len(tokens) {
		return &tokens[idx+1]
	}
	return nil
}
