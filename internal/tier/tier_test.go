// AngelaMos | 2026
// tier_test.go

package tier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "start", want: Start},
		{in: "vip", want: VIP},
		{in: "premium", want: Premium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseRejectsUnknownNames(t *testing.T) {
	for _, in := range []string{"", "gold", "VIP", "admin", " premium"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnknown, in)
	}
}

func TestOrdering(t *testing.T) {
	assert.Equal(t, 0, Start.Ordinal())
	assert.Equal(t, 1, VIP.Ordinal())
	assert.Equal(t, 2, Premium.Ordinal())

	assert.True(t, Premium.AtLeast(VIP))
	assert.True(t, VIP.AtLeast(VIP))
	assert.False(t, Start.AtLeast(VIP))
	assert.Equal(t, []Tier{Start, VIP, Premium}, All())
}

func TestJSONUsesNames(t *testing.T) {
	payload := struct {
		Tier Tier `json:"tier"`
	}{Tier: VIP}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"vip"}`, string(raw))

	require.NoError(t, json.Unmarshal([]byte(`{"tier":"premium"}`), &payload))
	assert.Equal(t, Premium, payload.Tier)

	assert.Error(t, json.Unmarshal([]byte(`{"tier":"gold"}`), &payload))
}

func TestSQLCodec(t *testing.T) {
	v, err := Premium.Value()
	require.NoError(t, err)
	assert.Equal(t, "premium", v)

	var got Tier
	require.NoError(t, got.Scan([]byte("vip")))
	assert.Equal(t, VIP, got)
	require.NoError(t, got.Scan("start"))
	assert.Equal(t, Start, got)
	assert.Error(t, got.Scan(42))

	_, err = Tier(9).Value()
	assert.ErrorIs(t, err, ErrUnknown)
}
