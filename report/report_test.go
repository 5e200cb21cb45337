package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleReport() Report {
	return Build([]string{"fib", "add", "idle"}, map[string]cache.Stats{
		"fib": {Calls: 10, Hits: 8, Misses: 2, TotalTime: 2 * time.Second},
		"add": {Calls: 2, Hits: 1, Misses: 1, TotalTime: time.Second},
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Benefit
	}{
		{ratio: 1, want: BenefitHigh},
		{ratio: 0.76, want: BenefitHigh},
		{ratio: 0.75, want: BenefitMedium},
		{ratio: 0.26, want: BenefitMedium},
		{ratio: 0.25, want: BenefitLow},
		{ratio: 0, want: BenefitLow},
	}

	for _, tt := range tests {
		got, recommendation := Classify(tt.ratio)
		assert.Equal(t, tt.want, got, "ratio %v", tt.ratio)
		assert.NotEmpty(t, recommendation)
	}
}

func TestBuild(t *testing.T) {
	r := sampleReport()
	require.Len(t, r.Rows, 3)

	assert.Equal(t, []string{"fib", "add", "idle"}, []string{r.Rows[0].Target, r.Rows[1].Target, r.Rows[2].Target})

	fib := r.Rows[0]
	assert.InDelta(t, 0.8, fib.HitRatio, 1e-9)
	assert.Equal(t, 400*time.Millisecond, fib.TimeSaved)
	assert.Equal(t, BenefitHigh, fib.Benefit)

	idle := r.Rows[2]
	assert.Equal(t, int64(0), idle.Calls)
	assert.Equal(t, float64(0), idle.HitRatio)
	assert.Equal(t, BenefitLow, idle.Benefit)
}

func TestBuild_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := map[string]cache.Stats{"a": {Calls: 1, Misses: 1}}
	Build([]string{"a", "b"}, snapshot)
	assert.Len(t, snapshot, 1)
}

func TestTableRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer().Render(&buf, sampleReport()))

	out := buf.String()
	for _, header := range tableHeader {
		assert.Contains(t, out, header)
	}
	assert.Contains(t, out, "2.000000")
	assert.Contains(t, out, "0.400000")
	assert.Contains(t, out, "Caching Recommendations:")
	assert.Contains(t, out, "fib: Could benefit from caching\n")
	assert.Contains(t, out, "add: May benefit from selective caching\n")
	assert.Contains(t, out, "idle: Unlikely to benefit significantly from caching\n")

	recIdx := strings.Index(out, "Caching Recommendations:")
	assert.Greater(t, recIdx, strings.Index(out, "idle"))
}

func TestTableRenderer_ColorOnlyOnTerminals(t *testing.T) {
	renderer := NewTableRenderer(WithColor(true))

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, sampleReport()))
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "fib: Could benefit from caching\n")

	path := filepath.Join(t.TempDir(), "report.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, renderer.Render(f, sampleReport()))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\x1b[")

	assert.False(t, isTerminal(&buf))
	t.Setenv("NO_COLOR", "1")
	assert.False(t, isTerminal(os.Stdout))
}

func TestJSONRenderer_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, sampleReport()))
	testsupport.CompareWithGolden(t, testsupport.GoldenPath("report.json"), buf.Bytes())
}

func TestLogRenderer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewLogRenderer(zap.New(core))

	require.NoError(t, r.Render(nil, sampleReport()))

	entries := logs.FilterMessage("call cache report").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "fib", entries[0].ContextMap()["target"])
	assert.Equal(t, "High", entries[0].ContextMap()["benefit"])
}

func TestFromConfig(t *testing.T) {
	cfg := cache.DefaultConfig().Report

	r, out := FromConfig(cfg, nil)
	assert.IsType(t, &TableRenderer{}, r)
	assert.NotNil(t, out)

	cfg.Format = cache.ReportFormatJSON
	r, _ = FromConfig(cfg, nil)
	assert.IsType(t, JSONRenderer{}, r)

	cfg.Format = cache.ReportFormatLog
	r, _ = FromConfig(cfg, zap.NewNop())
	assert.IsType(t, &LogRenderer{}, r)

	cfg.Enabled = false
	r, out = FromConfig(cfg, nil)
	assert.Nil(t, r)
	assert.Nil(t, out)
}
