package llm

import "strings"

// ExtractStatement isolates a single SQL statement from a possibly verbose
// model response. Ambiguity (no statement, multiple statements) is a hard
// failure rather than a guess.
func ExtractStatement(response string) (string, *GenerationError) {
	text := stripMarkdownFences(response)
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Reason: ReasonEmptyResponse, Message: "model returned empty output"}
	}

	statements := splitStatements(text)
	switch len(statements) {
	case 0:
		return "", &GenerationError{Reason: ReasonUnparseable, Message: "no SQL statement found in model output"}
	case 1:
		return statements[0], nil
	default:
		return "", &GenerationError{Reason: ReasonUnparseable, Message: "model output contains multiple SQL statements"}
	}
}

func stripMarkdownFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```sql")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// splitStatements splits on semicolons that sit outside single-quoted and
// double-quoted literals, discarding empty fragments.
func splitStatements(text string) []string {
	statements := make([]string, 0, 1)
	var current strings.Builder
	inSingle := false
	inDouble := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\'' && !inDouble:
			// '' escapes a quote inside a string literal.
			if inSingle && i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune(ch)
				current.WriteRune(runes[i+1])
				i++
				continue
			}
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == ';' && !inSingle && !inDouble:
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}
		current.WriteRune(ch)
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
