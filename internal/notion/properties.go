package notion

import (
	"time"
)

// textFieldMaxLength caps text written into a single rich-text span; the API
// rejects longer spans outright.
const textFieldMaxLength = 2000

// Properties is a record-write payload keyed by field name.
type Properties map[string]any

// Builder assembles a record-write payload against a collection schema.
// Setters silently skip fields the schema does not carry, so one write path
// serves collections with slightly different shapes.
type Builder struct {
	schema *Collection
	props  Properties
}

// NewBuilder creates a Builder for the given schema. A nil schema disables
// checking and accepts every field.
func NewBuilder(schema *Collection) *Builder {
	return &Builder{
		schema: schema,
		props:  Properties{},
	}
}

// Title sets the collection's title field.
func (b *Builder) Title(field, text string) *Builder {
	if !b.schema.Has(field, "title") {
		return b
	}

	b.props[field] = map[string]any{
		"title": []map[string]any{textSpan(text)},
	}

	return b
}

// URL sets a URL field. Empty values are skipped rather than written, since
// the API rejects empty URL strings.
func (b *Builder) URL(field, value string) *Builder {
	if value == "" || !b.schema.Has(field, "url") {
		return b
	}

	b.props[field] = map[string]any{"url": value}

	return b
}

// Select sets a single-choice field. Empty values are skipped.
func (b *Builder) Select(field, option string) *Builder {
	if option == "" || !b.schema.Has(field, "select") {
		return b
	}

	b.props[field] = map[string]any{
		"select": map[string]any{"name": option},
	}

	return b
}

// Number sets a number field. A nil value clears it.
func (b *Builder) Number(field string, value *int) *Builder {
	if !b.schema.Has(field, "number") {
		return b
	}

	if value == nil {
		b.props[field] = map[string]any{"number": nil}
		return b
	}

	b.props[field] = map[string]any{"number": *value}

	return b
}

// RichText sets a rich-text field, truncating to the API's span limit. An
// empty value writes an empty span list, clearing whatever the field held.
func (b *Builder) RichText(field, text string) *Builder {
	if !b.schema.Has(field, "rich_text") {
		return b
	}

	spans := []map[string]any{}
	if text != "" {
		spans = append(spans, textSpan(text))
	}

	b.props[field] = map[string]any{"rich_text": spans}

	return b
}

// Date sets a date field to the given instant.
func (b *Builder) Date(field string, t time.Time) *Builder {
	if !b.schema.Has(field, "date") {
		return b
	}

	b.props[field] = map[string]any{
		"date": map[string]any{"start": t.UTC().Format(time.RFC3339)},
	}

	return b
}

// Relation points a relation field at a record in the linked collection.
// Empty record IDs are skipped.
func (b *Builder) Relation(field, recordID string) *Builder {
	if recordID == "" || !b.schema.Has(field, "relation") {
		return b
	}

	b.props[field] = map[string]any{
		"relation": []map[string]any{{"id": recordID}},
	}

	return b
}

// Build returns the assembled payload.
func (b *Builder) Build() Properties {
	return b.props
}

func textSpan(text string) map[string]any {
	if runes := []rune(text); len(runes) > textFieldMaxLength {
		text = string(runes[:textFieldMaxLength])
	}

	return map[string]any{
		"text": map[string]any{"content": text},
	}
}
