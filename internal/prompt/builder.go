// Package prompt composes the model prompt for one generation attempt from
// the schema snapshot, the domain context, and the user question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dealdesk/dealdesk/internal/domain"
	"github.com/dealdesk/dealdesk/internal/schema"
)

// Feedback carries the previous attempt back into the next prompt. It is the
// sole channel through which the model learns what went wrong.
type Feedback struct {
	SQL   string
	Error string
}

type Context struct {
	System string
	User   string
}

type Builder struct {
	Domain domain.Context
	// CharBudget bounds the rendered schema text. Zero means unbounded.
	CharBudget int
}

const systemPrompt = "You are a SQL expert for a CRM sales database. " +
	"Given the database schema and a user question, generate a single valid DuckDB SQL query. " +
	"DuckDB uses PostgreSQL-like SQL syntax. " +
	"Use read-only SELECT statements only. Prefer the views when appropriate for the question. " +
	"Return ONLY the SQL query. No markdown, no explanation."

// Build is deterministic: identical inputs produce an identical Context.
func (b *Builder) Build(question string, descriptor schema.Descriptor, prior *Feedback) Context {
	schemaText := b.renderSchema(question, descriptor)
	domainText := b.Domain.Render()

	var user strings.Builder
	if prior != nil {
		fmt.Fprintf(&user, "Your previous SQL query failed with this error:\n\nError: %s\n\nPrevious query:\n%s\n\n", prior.Error, prior.SQL)
		user.WriteString("Here is the schema again:\n\n")
	}
	user.WriteString(schemaText)
	user.WriteString("\n")
	user.WriteString(domainText)
	fmt.Fprintf(&user, "\nUser question: %s\n", strings.TrimSpace(question))
	if prior != nil {
		user.WriteString("\nPlease fix the query. Pay careful attention to:\n" +
			"1. Use the EXACT column names from the schema\n" +
			"2. Check which table or view has the columns you need\n" +
			"3. Generate ONLY the corrected SQL query, no explanation.\n")
	} else {
		user.WriteString("\nGenerate ONLY the SQL query, no explanation.\n")
	}

	return Context{System: systemPrompt, User: user.String()}
}

// renderSchema renders one block per object, dropping whole blocks from the
// tail when the budget is exceeded. Objects named in the question survive
// truncation first.
func (b *Builder) renderSchema(question string, descriptor schema.Descriptor) string {
	blocks := make([]string, 0, len(descriptor.Objects))
	total := 0
	for _, object := range descriptor.Objects {
		block := renderObject(object)
		blocks = append(blocks, block)
		total += len(block)
	}

	header := "Database schema:\n"
	if b.CharBudget <= 0 || total+len(header) <= b.CharBudget {
		return header + strings.Join(blocks, "")
	}

	ordered := prioritize(question, descriptor.Objects)
	kept := make([]string, len(blocks))
	budget := b.CharBudget - len(header)
	for _, idx := range ordered {
		if len(blocks[idx]) > budget {
			continue
		}
		kept[idx] = blocks[idx]
		budget -= len(blocks[idx])
	}

	var out strings.Builder
	out.WriteString(header)
	dropped := 0
	for _, block := range kept {
		if block == "" {
			dropped++
			continue
		}
		out.WriteString(block)
	}
	if dropped > 0 {
		fmt.Fprintf(&out, "\n(%d additional objects omitted for brevity)\n", dropped)
	}
	return out.String()
}

// prioritize returns object indexes ordered by relevance: objects whose name
// appears in the question first (descriptor order preserved within groups).
func prioritize(question string, objects []schema.Object) []int {
	lowered := strings.ToLower(question)
	referenced := make([]int, 0, len(objects))
	rest := make([]int, 0, len(objects))
	for idx, object := range objects {
		if strings.Contains(lowered, strings.ToLower(object.Name)) {
			referenced = append(referenced, idx)
		} else {
			rest = append(rest, idx)
		}
	}
	return append(referenced, rest...)
}

func renderObject(object schema.Object) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s: %s\n", strings.ToUpper(string(object.Kind)), object.Name)
	for _, column := range object.Columns {
		fmt.Fprintf(&b, "  - %s (%s", column.Name, column.Type)
		if !column.Nullable {
			b.WriteString(", not null")
		}
		b.WriteString(")")
		if len(column.Samples) > 0 {
			fmt.Fprintf(&b, " [examples: %s]", strings.Join(column.Samples, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
