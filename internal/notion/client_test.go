package notion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/notion"
)

func newTestClient(t *testing.T, server *httptest.Server) *notion.Client {
	t.Helper()

	return notion.NewClient("secret-token", logger.NewNoOp(),
		notion.WithBaseURL(server.URL),
		notion.WithMaxRetries(2),
	)
}

func TestQueryAllFollowsPagination(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/databases/db-a/query", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("Notion-Version"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		if calls.Add(1) == 1 {
			assert.NotContains(t, payload, "start_cursor")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results":     []map[string]any{{"id": "rec-1"}},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
			return
		}

		assert.Equal(t, "cursor-2", payload["start_cursor"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  []map[string]any{{"id": "rec-2"}},
			"has_more": false,
		})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	records, err := client.QueryAll(context.Background(), "db-a", nil)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "rec-2", records[1].ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateRecordReturnsID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pages", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		parent, ok := payload["parent"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "db-a", parent["database_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "rec-new"})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	id, err := client.CreateRecord(context.Background(), "db-a", notion.Properties{})
	require.NoError(t, err)
	assert.Equal(t, "rec-new", id)
}

func TestUpdateRecordPatchesProperties(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/pages/rec-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "rec-1"})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	err := client.UpdateRecord(context.Background(), "rec-1", notion.Properties{})
	require.NoError(t, err)
}

func TestRetriesRateLimitThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "rec-1"})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	id, err := client.CreateRecord(context.Background(), "db-a", notion.Properties{})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    "validation_error",
			"message": "body failed validation",
		})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	_, err := client.CreateRecord(context.Background(), "db-a", notion.Properties{})
	require.Error(t, err)

	var apiErr *notion.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetCollectionParsesSchema(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/databases/db-a", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "db-a",
			"properties": map[string]any{
				"Name":   map[string]any{"type": "title"},
				"URL":    map[string]any{"type": "url"},
				"Status": map[string]any{
					"type": "select",
					"select": map[string]any{
						"options": []map[string]any{{"name": "Active"}},
					},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	collection, err := client.GetCollection(context.Background(), "db-a")
	require.NoError(t, err)

	assert.True(t, collection.Has("Name", "title"))
	assert.True(t, collection.Has("URL", "url"))
	assert.False(t, collection.Has("URL", "rich_text"))
	assert.False(t, collection.Has("Missing", "url"))
	assert.True(t, collection.HasSelectOption("Status", "Active"))
	assert.False(t, collection.HasSelectOption("Status", "Broken"))
}

func TestAddSelectOption(t *testing.T) {
	t.Parallel()

	var patched atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/databases/db-a", r.URL.Path)
		patched.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "db-a"})
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server)

	collection := &notion.Collection{
		ID: "db-a",
		Properties: map[string]notion.PropertyDescriptor{
			"Status": {
				Type:   "select",
				Select: &notion.SelectDescriptor{Options: []notion.SelectOption{{Name: "Active"}}},
			},
		},
	}

	require.NoError(t, client.AddSelectOption(context.Background(), collection, "Status", "Broken"))
	assert.True(t, collection.HasSelectOption("Status", "Broken"))
	assert.Equal(t, int32(1), patched.Load())

	// Existing options do not trigger another schema patch.
	require.NoError(t, client.AddSelectOption(context.Background(), collection, "Status", "Broken"))
	assert.Equal(t, int32(1), patched.Load())
}

func TestRecordAccessors(t *testing.T) {
	t.Parallel()

	url := "https://example.com/page"
	score := 404.0

	record := notion.Record{
		ID: "rec-1",
		Properties: map[string]notion.PropertyValue{
			"Name": {
				Type:  "title",
				Title: []notion.RichTextSpan{{PlainText: "Example "}, {PlainText: "Page"}},
			},
			"URL":    {Type: "url", URL: &url},
			"Result": {Type: "select", Select: &notion.SelectOption{Name: "Broken"}},
			"Code":   {Type: "number", Number: &score},
		},
	}

	assert.Equal(t, "Example Page", record.PlainText("Name"))
	assert.Equal(t, url, record.URLValue("URL"))
	assert.Equal(t, "Broken", record.SelectValue("Result"))
	require.NotNil(t, record.NumberValue("Code"))
	assert.InDelta(t, 404, *record.NumberValue("Code"), 0.01)

	assert.Empty(t, record.PlainText("Missing"))
	assert.Empty(t, record.URLValue("Missing"))
	assert.Empty(t, record.SelectValue("Missing"))
	assert.Nil(t, record.NumberValue("Missing"))
}
