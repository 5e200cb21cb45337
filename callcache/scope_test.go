package callcache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func quietScope(t *testing.T, targets []Target, opts ...Option) *Scope {
	t.Helper()
	s, err := Begin(targets, append([]Option{WithoutReport()}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestBegin_RegistersTargetsInOrder(t *testing.T) {
	s := quietScope(t, []Target{
		NewTarget("mul", newAdd().Func()),
		NewTarget("add", newAdd().Func()),
	})
	defer s.End()

	require.NoError(t, s.Include(NewTarget("echo", newEcho().Func())))

	assert.Equal(t, []string{"mul", "add", "echo"}, s.Targets())
	assert.NotEmpty(t, s.ID())
	for _, name := range s.Targets() {
		assert.Equal(t, cache.Stats{}, s.Stats()[name])
	}
}

func TestBegin_RejectsDuplicateAndNil(t *testing.T) {
	_, err := Begin([]Target{
		NewTarget("add", newAdd().Func()),
		NewTarget("add", newAdd().Func()),
	}, WithoutReport())
	assert.ErrorIs(t, err, cache.ErrDuplicateTarget)

	_, err = Begin([]Target{NewTarget("nil", nil)}, WithoutReport())
	assert.ErrorIs(t, err, cache.ErrNilTarget)
}

func TestScope_CallUnknownTarget(t *testing.T) {
	s := quietScope(t, nil)
	defer s.End()

	_, err := s.Call(context.Background(), "missing", nil, nil)
	assert.ErrorIs(t, err, cache.ErrUnknownTarget)
}

func TestScope_AddScenario(t *testing.T) {
	add := newAdd()
	s := quietScope(t, []Target{NewTarget("add", add.Func())})

	call := s.Func("add")
	for n := 0; n < 2; n++ {
		got, err := call(context.Background(), []any{2, 3}, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, got)
	}

	assert.Equal(t, int64(1), add.calls.Load())
	assert.Equal(t, cache.Stats{Calls: 2, Hits: 1, Misses: 1, TotalTime: s.Stats()["add"].TotalTime}, s.Stats()["add"])
	require.NoError(t, s.End())
}

func TestScope_PostEndCallsBypass(t *testing.T) {
	add := newAdd()
	s := quietScope(t, []Target{NewTarget("add", add.Func())})
	call := s.Func("add")

	_, err := call(context.Background(), []any{2, 3}, nil)
	require.NoError(t, err)
	require.NoError(t, s.End())
	before := s.Stats()["add"]

	got, err := call(context.Background(), []any{2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	assert.Equal(t, int64(2), add.calls.Load())
	assert.Equal(t, before, s.Stats()["add"])
	assert.True(t, s.Ended())

	err = s.Include(NewTarget("late", newEcho().Func()))
	assert.ErrorIs(t, err, cache.ErrScopeClosed)
}

func TestScope_InstallRestoresOriginal(t *testing.T) {
	add := newAdd()
	var target Func = add.Func()
	original := target

	s := quietScope(t, nil)
	require.NoError(t, s.Install("add", &target))
	assert.NotEqual(t, funcPointer(original), funcPointer(target))

	for n := 0; n < 3; n++ {
		_, err := target(context.Background(), []any{1, 1}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), add.calls.Load())

	require.NoError(t, s.End())
	assert.Equal(t, funcPointer(original), funcPointer(target))
}

func TestScope_InstallDetectsReassignment(t *testing.T) {
	var target Func = newAdd().Func()
	original := target

	s := quietScope(t, nil)
	require.NoError(t, s.Install("add", &target))

	target = func(context.Context, []any, cache.Kwargs) (any, error) { return "hijacked", nil }

	err := s.End()
	var restoreErr *cache.ScopeRestorationError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, "add", restoreErr.Target)
	assert.Equal(t, funcPointer(original), funcPointer(target))
}

func TestScope_InstallNil(t *testing.T) {
	s := quietScope(t, nil)
	defer s.End()

	var target Func
	assert.ErrorIs(t, s.Install("nil", &target), cache.ErrNilTarget)
	assert.ErrorIs(t, s.Install("nil", nil), cache.ErrNilTarget)
}

func TestScope_EndIsIdempotentAndReportsOnce(t *testing.T) {
	var buf bytes.Buffer
	s, err := Begin([]Target{NewTarget("add", newAdd().Func())}, WithReporter(report.NewTableRenderer(), &buf))
	require.NoError(t, err)

	_, err = s.Call(context.Background(), "add", []any{2, 3}, nil)
	require.NoError(t, err)

	require.NoError(t, s.End())
	first := buf.String()
	require.NoError(t, s.End())

	assert.Equal(t, first, buf.String())
	assert.Contains(t, first, "Caching Recommendations:")
	assert.Contains(t, first, "add: Unlikely to benefit significantly from caching")
}

type errRenderer struct{}

func (errRenderer) Render(io.Writer, report.Report) error {
	return errors.New("disk full")
}

func TestScope_EndCombinesErrors(t *testing.T) {
	var target Func = newAdd().Func()
	s, err := Begin(nil, WithReporter(errRenderer{}, nil))
	require.NoError(t, err)
	require.NoError(t, s.Install("add", &target))
	target = func(context.Context, []any, cache.Kwargs) (any, error) { return nil, nil }

	err = s.End()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestRun_EndsOnError(t *testing.T) {
	var captured *Scope
	errStop := errors.New("stop")

	err := Run(context.Background(), []Target{NewTarget("add", newAdd().Func())}, func(ctx context.Context, s *Scope) error {
		captured = s
		fromCtx, ok := ScopeFromContext(ctx)
		require.True(t, ok)
		assert.Same(t, s, fromCtx)
		return errStop
	}, WithoutReport())

	assert.ErrorIs(t, err, errStop)
	require.NotNil(t, captured)
	assert.True(t, captured.Ended())
}

func TestRun_EndsOnPanic(t *testing.T) {
	var target Func = newAdd().Func()
	original := target
	var captured *Scope

	assert.Panics(t, func() {
		_ = Run(context.Background(), nil, func(ctx context.Context, s *Scope) error {
			captured = s
			require.NoError(t, s.Install("add", &target))
			panic("caller failed")
		}, WithoutReport())
	})

	require.NotNil(t, captured)
	assert.True(t, captured.Ended())
	assert.Equal(t, funcPointer(original), funcPointer(target))
}

func TestScope_IsolatedStores(t *testing.T) {
	add := newAdd()
	first := quietScope(t, []Target{NewTarget("add", add.Func())})
	_, err := first.Call(context.Background(), "add", []any{1, 2}, nil)
	require.NoError(t, err)
	require.NoError(t, first.End())

	second := quietScope(t, []Target{NewTarget("add", add.Func())})
	_, err = second.Call(context.Background(), "add", []any{1, 2}, nil)
	require.NoError(t, err)
	require.NoError(t, second.End())

	assert.Equal(t, int64(2), add.calls.Load())
}

func TestScope_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := quietScope(t, []Target{NewTarget("add", newAdd().Func())}, WithLogger(zap.New(core)))

	_, _ = s.Call(context.Background(), "add", []any{1, 2}, nil)
	_, _ = s.Call(context.Background(), "add", []any{1, 2}, nil)
	require.NoError(t, s.End())

	assert.Equal(t, 1, logs.FilterMessage("call cache scope started").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache miss").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache hit").Len())
	assert.Equal(t, 1, logs.FilterMessage("call cache scope ended").Len())

	started := logs.FilterMessage("call cache scope started").All()[0]
	assert.Equal(t, s.ID(), started.ContextMap()["scope"])
}

func TestScope_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := quietScope(t, []Target{NewTarget("add", newAdd().Func())}, WithMetrics(reg))

	_, err := s.Call(context.Background(), "add", []any{1, 2}, nil)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["callcache_calls_total"])

	require.NoError(t, s.End())
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestScope_WithConfigDisabled(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Enabled = false
	cfg.Report.Enabled = false

	add := newAdd()
	s, err := Begin([]Target{NewTarget("add", add.Func())}, WithConfig(cfg))
	require.NoError(t, err)

	for n := 0; n < 2; n++ {
		_, err := s.Call(context.Background(), "add", []any{2, 3}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, s.End())

	assert.Equal(t, int64(2), add.calls.Load())
	assert.Equal(t, cache.Stats{}, s.Stats()["add"])
}
