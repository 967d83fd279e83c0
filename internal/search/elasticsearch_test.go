package search

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplatform/internal/models"
)

func TestBuildSearchQuery_MatchAll(t *testing.T) {
	q := BuildSearchQuery("", 0)
	assert.Contains(t, q, "match_all")
}

func TestBuildSearchQuery_TextAndType(t *testing.T) {
	q := BuildSearchQuery("conf", 3)

	boolQuery, ok := q["bool"].(map[string]any)
	require.True(t, ok)

	must := boolQuery["must"].([]map[string]any)
	require.Len(t, must, 1)
	text := must[0]["bool"].(map[string]any)
	assert.Equal(t, 1, text["minimum_should_match"])

	should := text["should"].([]map[string]any)
	require.Len(t, should, 3)
	for i, field := range []string{"title", "description", "location"} {
		wildcard := should[i]["wildcard"].(map[string]any)
		clause := wildcard[field+".substring"].(map[string]any)
		assert.Equal(t, "*conf*", clause["value"])
		assert.Equal(t, true, clause["case_insensitive"])
	}

	filter := boolQuery["filter"].([]map[string]any)
	require.Len(t, filter, 1)
	assert.Equal(t, map[string]any{"event_type_id": int64(3)}, filter[0]["term"])
}

func TestBuildSearchQuery_IsSubstringNotFuzzy(t *testing.T) {
	raw, err := json.Marshal(BuildSearchQuery("Conf", 0))
	require.NoError(t, err)

	body := string(raw)
	assert.NotContains(t, body, "fuzziness")
	assert.NotContains(t, body, "multi_match")
	assert.Contains(t, body, `"value":"*Conf*"`)
}

func TestBuildSearchQuery_EscapesWildcards(t *testing.T) {
	raw, err := json.Marshal(BuildSearchQuery(`50% *off? a\b`, 0))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":"*50% \\*off\\? a\\\\b*"`)
}

func TestIndexMapping_HasSubstringFields(t *testing.T) {
	props := IndexMapping()["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"title", "description", "location"} {
		sub := props[field].(map[string]any)["fields"].(map[string]any)
		assert.Equal(t, map[string]any{"type": "wildcard"}, sub["substring"], field)
	}
}

func TestDecodeHitIDs(t *testing.T) {
	body := `{"hits":{"hits":[{"_id":"7"},{"_id":"3"}]}}`
	ids, err := decodeHitIDs(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 3}, ids)

	_, err = decodeHitIDs(strings.NewReader(`{"hits":{"hits":[{"_id":"abc"}]}}`))
	assert.Error(t, err)
}

func TestDecodeHitIDs_TruncatedResultIsAnError(t *testing.T) {
	body := `{"hits":{"total":{"value":1500},"hits":[{"_id":"1"},{"_id":"2"}]}}`
	_, err := decodeHitIDs(strings.NewReader(body))
	assert.ErrorIs(t, err, ErrTooManyHits)

	ids, err := decodeHitIDs(strings.NewReader(`{"hits":{"total":{"value":1},"hits":[{"_id":"4"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids)
}

func TestNewEventDocument(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	doc := NewEventDocument(&models.Event{
		ID: 9, Title: "Concierto", Location: "Teatro", EventTypeID: 2,
		Visibility: models.VisibilityPrivate, StartTime: start,
	})

	assert.Equal(t, int64(9), doc.ID)
	assert.Equal(t, "Teatro", doc.Location)
	assert.Equal(t, models.VisibilityPrivate, doc.Visibility)
	assert.Equal(t, start, doc.StartTime)
}
