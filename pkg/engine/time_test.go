package engine_test

import (
	"encoding/json"
	"testing"
	"time"

	"tradepulse/backend/pkg/engine"

	jsoniter "github.com/json-iterator/go"
	"gotest.tools/assert"
)

type testEventTimes struct {
	CreatedAt engine.EventTime  `json:"created_at"`
	SettledAt *engine.EventTime `json:"settled_at,omitempty"`
}

func TestEventTime_UnmarshalNaiveISO(t *testing.T) {
	// the engine serializes naive UTC timestamps without a zone suffix
	raw := `{"created_at":"2026-08-21T10:11:12.123456"}`
	want := time.Date(2026, 8, 21, 10, 11, 12, 123456000, time.UTC)

	var obj testEventTimes
	err := json.Unmarshal([]byte(raw), &obj)
	assert.NilError(t, err)
	assert.Equal(t, obj.CreatedAt.Time, want, "std json")

	obj = testEventTimes{}
	err = jsoniter.Unmarshal([]byte(raw), &obj)
	assert.NilError(t, err)
	assert.Equal(t, obj.CreatedAt.Time, want, "jsoniter")
}

func TestEventTime_UnmarshalVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{`{"created_at":"2026-08-21T10:11:12Z"}`, time.Date(2026, 8, 21, 10, 11, 12, 0, time.UTC)},
		{`{"created_at":"2026-08-21T12:11:12+02:00"}`, time.Date(2026, 8, 21, 10, 11, 12, 0, time.UTC)},
		{`{"created_at":"2026-08-21T10:11:12"}`, time.Date(2026, 8, 21, 10, 11, 12, 0, time.UTC)},
		{`{"created_at":"2026-08-21 10:11:12"}`, time.Date(2026, 8, 21, 10, 11, 12, 0, time.UTC)},
		{`{"created_at":1700000000}`, time.Unix(1700000000, 0).UTC()},
		{`{"created_at":"1700000000"}`, time.Unix(1700000000, 0).UTC()},
	}

	for _, tc := range cases {
		var obj testEventTimes
		err := json.Unmarshal([]byte(tc.raw), &obj)
		assert.NilError(t, err, tc.raw)
		assert.Equal(t, obj.CreatedAt.Time, tc.want, tc.raw)
	}
}

func TestEventTime_UnmarshalEpochFraction(t *testing.T) {
	var obj testEventTimes
	err := json.Unmarshal([]byte(`{"created_at":1700000000.5}`), &obj)
	assert.NilError(t, err)
	assert.Equal(t, obj.CreatedAt.Unix(), int64(1700000000))
	assert.Equal(t, obj.CreatedAt.Nanosecond(), 500000000)
}

func TestEventTime_UnmarshalNull(t *testing.T) {
	var obj testEventTimes
	err := json.Unmarshal([]byte(`{"created_at":null,"settled_at":null}`), &obj)
	assert.NilError(t, err)
	assert.Assert(t, obj.CreatedAt.IsZero())

	err = json.Unmarshal([]byte(`{"created_at":""}`), &obj)
	assert.NilError(t, err)
	assert.Assert(t, obj.CreatedAt.IsZero())
}

func TestEventTime_UnmarshalInvalid(t *testing.T) {
	var obj testEventTimes
	err := json.Unmarshal([]byte(`{"created_at":"not-a-time"}`), &obj)
	assert.ErrorContains(t, err, "unsupported timestamp")
}

func TestEventTime_Marshal(t *testing.T) {
	obj := testEventTimes{
		CreatedAt: engine.EventTime{Time: time.Date(2026, 8, 21, 10, 11, 12, 123456000, time.UTC)},
	}

	val, err := json.Marshal(&obj)
	assert.NilError(t, err)
	assert.Equal(t, string(val), `{"created_at":"2026-08-21T10:11:12.123456Z"}`, "std json")

	val, err = jsoniter.Marshal(&obj)
	assert.NilError(t, err)
	assert.Equal(t, string(val), `{"created_at":"2026-08-21T10:11:12.123456Z"}`, "jsoniter")
}

func TestEventTime_MarshalZero(t *testing.T) {
	val, err := json.Marshal(&testEventTimes{})
	assert.NilError(t, err)
	assert.Equal(t, string(val), `{"created_at":null}`)
}

func TestTrade_DecodeEngineRecord(t *testing.T) {
	raw := `{
		"id": "a1b2c3",
		"symbol": "R_100",
		"direction": "RISE",
		"stake_amount": 1.0,
		"status": "WON",
		"entry_tick": 1234.56,
		"exit_tick": 1234.78,
		"payout": 1.95,
		"profit": 0.95,
		"created_at": "2026-08-21T10:11:12.123456",
		"settled_at": "2026-08-21T10:11:14.654321"
	}`

	var trade engine.Trade
	assert.NilError(t, json.Unmarshal([]byte(raw), &trade))
	assert.Equal(t, trade.Direction, engine.DirectionRise)
	assert.Assert(t, trade.IsTerminal())
	assert.Equal(t, trade.CreatedAt.Time, time.Date(2026, 8, 21, 10, 11, 12, 123456000, time.UTC))
	assert.Assert(t, trade.SettledAt != nil)
	assert.Equal(t, trade.SettledAt.Time, time.Date(2026, 8, 21, 10, 11, 14, 654321000, time.UTC))
}

func TestSignal_DecodeEpochTimestamp(t *testing.T) {
	raw := `{"id":"sig-1","direction":"FALL","symbol":"R_100","price":123.45,"timestamp":1700000000,"confidence":0.8}`

	var sig engine.Signal
	assert.NilError(t, json.Unmarshal([]byte(raw), &sig))
	assert.Equal(t, sig.Direction, engine.DirectionFall)
	assert.Equal(t, sig.Timestamp.Unix(), int64(1700000000))
	assert.Equal(t, sig.Confidence, 0.8)
}
