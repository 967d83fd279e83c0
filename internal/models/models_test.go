package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleTime_Layouts(t *testing.T) {
	want := time.Date(2026, 7, 4, 18, 30, 0, 0, time.UTC)

	for _, raw := range []string{`"2026-07-04T18:30:00Z"`, `"2026-07-04T18:30:00"`, `"2026-07-04T18:30"`} {
		var ft FlexibleTime
		require.NoError(t, json.Unmarshal([]byte(raw), &ft), raw)
		assert.True(t, want.Equal(ft.Time), raw)
	}

	var ft FlexibleTime
	require.NoError(t, json.Unmarshal([]byte(`null`), &ft))
	assert.True(t, ft.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"04/07/2026"`), &ft))
}

func TestFlexibleTime_MarshalsRFC3339(t *testing.T) {
	data, err := json.Marshal(FlexibleTime{Time: time.Date(2026, 7, 4, 18, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2026-07-04T18:30:00Z"`, string(data))

	data, err = json.Marshal(FlexibleTime{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestEvent_DerivedFields(t *testing.T) {
	now := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
	e := &Event{MaxCapacity: 3, ConfirmedCount: 5, EndTime: now.Add(time.Hour), Visibility: VisibilityPrivate}

	assert.Equal(t, -2, e.AvailableSeats())
	assert.True(t, e.IsActive(now))
	assert.False(t, e.IsActive(now.Add(time.Hour)))
	assert.False(t, e.IsPublic())
}
