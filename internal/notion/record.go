package notion

// Record is one row of a collection, as returned by queries.
type Record struct {
	ID         string                   `json:"id"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PropertyValue is one typed field value on a record. Only the member
// matching Type is populated.
type PropertyValue struct {
	Type     string         `json:"type"`
	Title    []RichTextSpan `json:"title,omitempty"`
	RichText []RichTextSpan `json:"rich_text,omitempty"`
	URL      *string        `json:"url,omitempty"`
	Number   *float64       `json:"number,omitempty"`
	Select   *SelectOption  `json:"select,omitempty"`
	Date     *DateValue     `json:"date,omitempty"`
	Relation []RelationRef  `json:"relation,omitempty"`
}

// RichTextSpan is one span of a text field.
type RichTextSpan struct {
	PlainText string `json:"plain_text"`
}

// SelectOption is one option of a single-choice field.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a date field value.
type DateValue struct {
	Start string `json:"start"`
}

// RelationRef points at a record in a linked collection.
type RelationRef struct {
	ID string `json:"id"`
}

// PlainText returns the concatenated text of a title or rich-text field, or
// an empty string when the field is absent.
func (r Record) PlainText(field string) string {
	prop, ok := r.Properties[field]
	if !ok {
		return ""
	}

	spans := prop.Title
	if prop.Type == "rich_text" {
		spans = prop.RichText
	}

	var text string
	for _, span := range spans {
		text += span.PlainText
	}

	return text
}

// URLValue returns the value of a URL field, or an empty string.
func (r Record) URLValue(field string) string {
	prop, ok := r.Properties[field]
	if !ok || prop.URL == nil {
		return ""
	}

	return *prop.URL
}

// SelectValue returns the chosen option of a single-choice field, or an
// empty string.
func (r Record) SelectValue(field string) string {
	prop, ok := r.Properties[field]
	if !ok || prop.Select == nil {
		return ""
	}

	return prop.Select.Name
}

// NumberValue returns the value of a number field, or nil.
func (r Record) NumberValue(field string) *float64 {
	prop, ok := r.Properties[field]
	if !ok {
		return nil
	}

	return prop.Number
}

// PropertyDescriptor describes one field of a collection schema.
type PropertyDescriptor struct {
	Type   string            `json:"type"`
	Select *SelectDescriptor `json:"select,omitempty"`
}

// SelectDescriptor lists the registered options of a single-choice field.
type SelectDescriptor struct {
	Options []SelectOption `json:"options"`
}

// Collection is a collection's schema: its field names and types.
type Collection struct {
	ID         string                        `json:"id"`
	Properties map[string]PropertyDescriptor `json:"properties"`
}

// Has reports whether the collection has a field of the given name and type.
// An unknown schema (nil, or no property map) accepts every field.
func (c *Collection) Has(field, fieldType string) bool {
	if c == nil || c.Properties == nil {
		return true
	}

	descriptor, ok := c.Properties[field]

	return ok && descriptor.Type == fieldType
}

// HasSelectOption reports whether a single-choice field already carries the
// given option.
func (c *Collection) HasSelectOption(field, option string) bool {
	if c == nil {
		return false
	}

	descriptor, ok := c.Properties[field]
	if !ok || descriptor.Select == nil {
		return false
	}

	for _, existing := range descriptor.Select.Options {
		if existing.Name == option {
			return true
		}
	}

	return false
}
