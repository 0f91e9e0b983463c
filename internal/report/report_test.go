package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	r := New("libwebp")
	r.Add(Entry{
		Source:        "hero.png",
		OriginalBytes: 100 << 10,
		Variants: []Variant{
			{Name: "desktop", SizeBytes: 20 << 10},
			{Name: "mobile", SizeBytes: 10 << 10},
		},
	})

	r.ComputeStats()

	assert.Equal(t, 1, r.Stats.Files)
	assert.Equal(t, 2, r.Stats.Outputs)
	assert.Equal(t, int64(200<<10), r.Stats.OriginalBytes)
	assert.Equal(t, int64(30<<10), r.Stats.CompressedBytes)
	assert.InDelta(t, 85.0, r.Stats.OverallReduction, 0.01)
}

func TestWriteRoundTrip(t *testing.T) {
	r := New("libwebp")
	r.Add(Entry{
		Source:        "logo.png",
		OriginalBytes: 850 << 10,
		Variants: []Variant{
			{
				Name: "desktop", Path: "logo_desktop.webp",
				Width: 1920, Height: 1080, Quality: 72,
				SizeBytes: 180 << 10, TargetBytes: 180 << 10,
				TargetMet: true, Iterations: 6, HasAlpha: true,
				Reduction: 78.8, Hash: "00deadbeef00cafe",
			},
		},
	})

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "libwebp", decoded.Backend)
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, "logo.png", decoded.Entries[0].Source)
	require.Len(t, decoded.Entries[0].Variants, 1)
	assert.True(t, decoded.Entries[0].Variants[0].TargetMet)
	assert.Equal(t, 1, decoded.Stats.Files)
}

func TestContentHash(t *testing.T) {
	first := ContentHash([]byte("payload"))
	second := ContentHash([]byte("payload"))
	other := ContentHash([]byte("different"))

	assert.Len(t, first, 16)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}
