package forecast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampKey(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "iso time", payload: `{"current":{"time":"2024-01-01T12:00"}}`, want: "2024-01-01T12:00"},
		{name: "unix time", payload: `{"current":{"time":1704110400}}`, want: "1704110400"},
		{name: "no current", payload: `{"hourly":{}}`, want: UnknownTime},
		{name: "null current", payload: `{"current":null}`, want: UnknownTime},
		{name: "no time", payload: `{"current":{"temperature_2m":21}}`, want: UnknownTime},
		{name: "null time", payload: `{"current":{"time":null}}`, want: UnknownTime},
		{name: "empty time", payload: `{"current":{"time":""}}`, want: UnknownTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimestampKey([]byte(tt.payload)))
		})
	}
}

func TestMerge_FromNothing(t *testing.T) {
	payload := []byte(`{"current":{"time":"2024-01-01T12:00"}}`)

	rec := Merge(nil, payload, "2024-01-01T12:00")

	assert.JSONEq(t, string(payload), string(rec.Latest))
	require.Len(t, rec.History, 1)
	assert.JSONEq(t, string(payload), string(rec.History["2024-01-01T12:00"]))
}

func TestMerge_SameKeyTwice(t *testing.T) {
	payload := []byte(`{"current":{"time":"2024-01-01T12:00"},"v":1}`)

	once := Merge(nil, payload, TimestampKey(payload))
	twice := Merge(&once, payload, TimestampKey(payload))

	require.Len(t, twice.History, 1)
	assert.JSONEq(t, string(payload), string(twice.Latest))
	assert.JSONEq(t, string(payload), string(twice.History["2024-01-01T12:00"]))
}

func TestMerge_SameTimestampDifferentPayload(t *testing.T) {
	first := []byte(`{"current":{"time":"2024-01-01T12:00","temperature_2m":20}}`)
	second := []byte(`{"current":{"time":"2024-01-01T12:00","temperature_2m":25}}`)

	rec := Merge(nil, first, TimestampKey(first))
	rec = Merge(&rec, second, TimestampKey(second))

	require.Len(t, rec.History, 1)
	assert.JSONEq(t, string(second), string(rec.History["2024-01-01T12:00"]))
	assert.JSONEq(t, string(second), string(rec.Latest))
}

func TestMerge_LatestIsLastWrittenNotNewest(t *testing.T) {
	newer := []byte(`{"current":{"time":"2024-01-02T00:00"}}`)
	older := []byte(`{"current":{"time":"2024-01-01T00:00"}}`)

	rec := Merge(nil, newer, TimestampKey(newer))
	rec = Merge(&rec, older, TimestampKey(older))

	assert.JSONEq(t, string(older), string(rec.Latest))
	assert.Len(t, rec.History, 2)
}

func TestMerge_HistoryNeverShrinks(t *testing.T) {
	rec := NewRecord()
	keys := []string{"2024-01-01T00:00", "2024-01-01T01:00", UnknownTime, "2024-01-01T00:00", UnknownTime}

	prev := 0
	for i, k := range keys {
		payload, err := json.Marshal(map[string]any{"n": i})
		require.NoError(t, err)

		rec = Merge(&rec, payload, k)
		assert.GreaterOrEqual(t, len(rec.History), prev)
		prev = len(rec.History)
	}
	assert.Len(t, rec.History, 3)
}

func TestMerge_DoesNotModifyExisting(t *testing.T) {
	existing := Merge(nil, []byte(`{"a":1}`), "k1")

	_ = Merge(&existing, []byte(`{"b":2}`), "k2")

	assert.Len(t, existing.History, 1)
	assert.JSONEq(t, `{"a":1}`, string(existing.Latest))
}
