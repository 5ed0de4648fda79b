// Package forecast persists forecasts per resolved location. Each location
// owns one record holding the latest payload and every payload seen so far,
// indexed by the payload's current-conditions timestamp.
package forecast

import (
	"encoding/json"
	"maps"

	"github.com/tidwall/gjson"
)

// UnknownTime is the history key used when a payload carries no current.time.
// Payloads without a timestamp therefore overwrite each other in history.
const UnknownTime = "unknown_time"

// Record is the persisted state of one location
type Record struct {
	Latest  json.RawMessage            `json:"latest,omitempty"`
	History map[string]json.RawMessage `json:"history"`
}

// NewRecord returns an empty record
func NewRecord() Record {
	return Record{History: map[string]json.RawMessage{}}
}

// TimestampKey extracts current.time from a forecast payload
func TimestampKey(payload []byte) string {
	ts := gjson.GetBytes(payload, "current.time")
	if !ts.Exists() || ts.Type == gjson.Null || ts.String() == "" {
		return UnknownTime
	}
	return ts.String()
}

// Merge returns a new record built from existing (nil means no record yet)
// with payload as the latest forecast and stored in history under key.
// Latest is always the merged payload, whatever its timestamp.
func Merge(existing *Record, payload []byte, key string) Record {
	merged := NewRecord()
	if existing != nil {
		maps.Copy(merged.History, existing.History)
	}

	p := json.RawMessage(append([]byte(nil), payload...))
	merged.Latest = p
	merged.History[key] = p

	return merged
}
