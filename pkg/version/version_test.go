package version_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/version"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    version.Version
		wantErr bool
	}{
		{in: "0.1.0", want: version.New(0, 1, 0)},
		{in: "1.22.333", want: version.New(1, 22, 333)},
		{in: "1.2", wantErr: true},
		{in: "v1.2.3", wantErr: true},
		{in: "1.2.3-beta", wantErr: true},
		{in: "1.2.3+build", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := version.Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestCompare(t *testing.T) {
	a := version.MustParse("0.1.0")
	b := version.MustParse("0.2.0")
	c := version.MustParse("1.0.0")

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, 0, a.Compare(version.New(0, 1, 0)))
	assert.Equal(t, 1, version.MustParse("0.1.1").Compare(a))
	assert.True(t, a.Equal(version.New(0, 1, 0)))
	assert.True(t, version.Version{}.IsZero())
}

func TestCompareOrdersByMostSignificantPart(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "0.9.9", 1},
		{"0.2.0", "0.1.9", 1},
		{"0.1.2", "0.1.10", -1},
		{"2.3.4", "2.3.4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			a, b := version.MustParse(tt.a), version.MustParse(tt.b)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	type doc struct {
		Version version.Version `json:"version"`
	}

	data, err := json.Marshal(doc{Version: version.New(0, 2, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0.2.0"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, version.New(0, 2, 0), out.Version)

	assert.Error(t, json.Unmarshal([]byte(`{"version":"2"}`), &out))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { version.MustParse("nope") })
}
