package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)
	encoded := EncodeTime(orig)
	decoded, err := DecodeTime(encoded)
	require.NoError(t, err)
	assert.True(t, orig.Equal(decoded))
}

func TestEncodeZeroTime(t *testing.T) {
	assert.Equal(t, "", EncodeTime(time.Time{}))

	decoded, err := DecodeTime("")
	require.NoError(t, err)
	assert.True(t, decoded.IsZero())
}

func TestTimestampMarshalJSON(t *testing.T) {
	ts := At(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-02T03:04:05Z"`, string(data))
}

func TestTimestampUnmarshalJSON(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2026-01-02T03:04:05Z"`), &ts))
		assert.Equal(t, 2026, ts.Time().Year())
	})

	t.Run("legacy epoch millis", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`1767322800000`), &ts))
		assert.False(t, ts.IsZero())
		assert.Equal(t, int64(1767322800000), ts.Time().UnixMilli())
	})

	t.Run("garbage degrades to zero", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"not a time"`), &ts))
		assert.True(t, ts.IsZero())
	})

	t.Run("null degrades to zero", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
		assert.True(t, ts.IsZero())
	})
}

func TestNowIsUTC(t *testing.T) {
	ts := Now()
	_, offset := ts.Time().Zone()
	assert.Equal(t, 0, offset)
}
