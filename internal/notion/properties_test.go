package notion_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/notion"
)

func occurrenceSchema() *notion.Collection {
	return &notion.Collection{
		ID: "db-b",
		Properties: map[string]notion.PropertyDescriptor{
			"Name":      {Type: "title"},
			"Link URL":  {Type: "url"},
			"Result":    {Type: "select"},
			"HTTP Code": {Type: "number"},
			"Context":   {Type: "rich_text"},
			"Last Seen": {Type: "date"},
			"Page":      {Type: "relation"},
		},
	}
}

func TestBuilderWritesKnownFields(t *testing.T) {
	t.Parallel()

	seen := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	props := notion.NewBuilder(occurrenceSchema()).
		Title("Name", "example.com | target").
		URL("Link URL", "https://target.example/path").
		Select("Result", "Broken").
		Number("HTTP Code", domain.IntPtr(404)).
		RichText("Context", "See our report for details.").
		Date("Last Seen", seen).
		Relation("Page", "rec-page").
		Build()

	require.Len(t, props, 7)

	result, ok := props["Result"].(map[string]any)
	require.True(t, ok)
	sel, ok := result["select"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Broken", sel["name"])

	date, ok := props["Last Seen"].(map[string]any)
	require.True(t, ok)
	inner, ok := date["date"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2026-08-30T12:00:00Z", inner["start"])
}

func TestBuilderSkipsFieldsAbsentFromSchema(t *testing.T) {
	t.Parallel()

	props := notion.NewBuilder(occurrenceSchema()).
		URL("Source URL", "https://example.com").
		Select("Mood", "great").
		RichText("Notes", "hello").
		Build()

	assert.Empty(t, props)
}

func TestBuilderSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	props := notion.NewBuilder(occurrenceSchema()).
		URL("Link URL", "").
		Select("Result", "").
		Relation("Page", "").
		Build()

	assert.Empty(t, props)
}

func TestBuilderEmptyRichTextClearsField(t *testing.T) {
	t.Parallel()

	props := notion.NewBuilder(occurrenceSchema()).
		RichText("Context", "").
		Build()

	field, ok := props["Context"].(map[string]any)
	require.True(t, ok)
	spans, ok := field["rich_text"].([]map[string]any)
	require.True(t, ok)
	assert.Empty(t, spans)
}

func TestBuilderNilNumberClearsField(t *testing.T) {
	t.Parallel()

	props := notion.NewBuilder(occurrenceSchema()).
		Number("HTTP Code", nil).
		Build()

	field, ok := props["HTTP Code"].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, field["number"])
}

func TestBuilderNilSchemaAcceptsEverything(t *testing.T) {
	t.Parallel()

	props := notion.NewBuilder(nil).
		Title("Anything", "x").
		URL("Whatever", "https://example.com").
		Build()

	assert.Len(t, props, 2)
}

func TestBuilderTruncatesLongText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 5000)

	props := notion.NewBuilder(occurrenceSchema()).
		RichText("Context", long).
		Build()

	field, ok := props["Context"].(map[string]any)
	require.True(t, ok)
	spans, ok := field["rich_text"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, spans, 1)

	text, ok := spans[0]["text"].(map[string]any)
	require.True(t, ok)
	content, ok := text["content"].(string)
	require.True(t, ok)
	assert.Len(t, content, 2000)
}
