package engine_test

import (
	"testing"

	"tradepulse/backend/pkg/engine"

	"gotest.tools/assert"
)

func TestClassify_TaggedFrame(t *testing.T) {
	category, data, err := engine.Classify([]byte(`{"type":"tick","data":{"symbol":"R_100","quote":123.45,"epoch":1700000000}}`))
	assert.NilError(t, err)
	assert.Equal(t, category, engine.CategoryTick)
	assert.Equal(t, string(data), `{"symbol":"R_100","quote":123.45,"epoch":1700000000}`, "tag frames unwrap to the data payload")
}

func TestClassify_TaggedFrameWithoutData(t *testing.T) {
	raw := `{"type":"connection","status":"up"}`
	category, data, err := engine.Classify([]byte(raw))
	assert.NilError(t, err)
	assert.Equal(t, category, engine.CategoryConnection)
	assert.Equal(t, string(data), raw, "tag without data keeps the whole frame")
}

func TestClassify_NonStringTagFallsBack(t *testing.T) {
	category, _, err := engine.Classify([]byte(`{"type":42,"symbol":"R_100","quote":1.5}`))
	assert.NilError(t, err)
	assert.Equal(t, category, engine.CategoryTick)
}

func TestClassify_HeuristicPrecedence(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"symbol":"R_100","quote":123.45,"epoch":1}`, engine.CategoryTick},
		{`{"symbol":"R_100","quote":123.45,"balance":900}`, engine.CategoryTick},
		{`{"balance":1000}`, engine.CategoryBalance},
		{`{"balance":1000,"side":"RISE"}`, engine.CategoryBalance},
		{`{"side":"RISE"}`, engine.CategoryTrade},
		{`{"contract_type":"CALL"}`, engine.CategoryTrade},
		{`{"side":"RISE","direction":"RISE"}`, engine.CategoryTrade},
		{`{"profit":1.5}`, engine.CategoryPerformance},
		{`{"win_rate":60}`, engine.CategoryPerformance},
		{`{"profit":1.5,"direction":"RISE"}`, engine.CategoryPerformance},
		{`{"direction":"RISE"}`, engine.CategorySignal},
		{`{"something":"else"}`, engine.CategoryUnknown},
	}

	for _, tc := range cases {
		category, data, err := engine.Classify([]byte(tc.raw))
		assert.NilError(t, err, tc.raw)
		assert.Equal(t, category, tc.want, tc.raw)
		assert.Equal(t, string(data), tc.raw, "heuristic frames keep the whole payload")
	}
}

func TestClassify_MalformedFrame(t *testing.T) {
	_, _, err := engine.Classify([]byte(`{"symbol":`))
	assert.ErrorContains(t, err, "unparseable frame")

	_, _, err = engine.Classify([]byte(`[1,2,3]`))
	assert.ErrorContains(t, err, "unparseable frame")
}
