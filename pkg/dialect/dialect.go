// Package dialect provides the SQL dialect settings used when compiling
// collection reads and writes into statements.
//
// Concrete dialects are declared by the adapters in pkg/adapters.
package dialect

import (
	"strconv"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Re-exported placeholder styles.
const (
	PlaceholderQuestion = core.PlaceholderQuestion
	PlaceholderDollar   = core.PlaceholderDollar
)

// Dialect is a SQL dialect configuration.
type Dialect struct {
	core.DialectConfig
}

// Config returns the static configuration of the dialect.
func (d *Dialect) Config() *core.DialectConfig {
	return &d.DialectConfig
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// InsensitiveLike renders a case-insensitive LIKE between expr and placeholder.
func (d *Dialect) InsensitiveLike(expr, placeholder string) string {
	if d.ILike {
		return expr + " ILIKE " + placeholder
	}
	return "LOWER(" + expr + ") LIKE LOWER(" + placeholder + ")"
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
// Identifiers default to ANSI double quotes.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{DialectConfig: core.DialectConfig{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
		}},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// DefaultSchema sets the schema used when none is configured.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets the parameter placeholder style.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// ILike marks the dialect as supporting ILIKE.
func (b *Builder) ILike() *Builder {
	b.dialect.DialectConfig.ILike = true
	return b
}

// UnboundedLimit sets the LIMIT value emitted before an OFFSET without limit.
func (b *Builder) UnboundedLimit(limit string) *Builder {
	b.dialect.DialectConfig.UnboundedLimit = limit
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
