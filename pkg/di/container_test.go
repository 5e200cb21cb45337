package di

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/callcache"
	"github.com/goliatone/go-callcache/pkg/testsupport"
)

func quietConfig() cache.Config {
	config := cache.DefaultConfig()
	config.Report.Enabled = false
	config.Log.Level = "error"
	return config
}

func TestNewContainer(t *testing.T) {
	config := quietConfig()
	config.MaxDepth = 8

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Logger() == nil {
		t.Error("Container should have a non-nil logger")
	}

	if container.Normalizer() == nil {
		t.Error("Container should have a non-nil normalizer")
	}

	if container.Registry() != nil {
		t.Error("Registry should be nil when metrics are disabled")
	}

	storedConfig := container.Config()
	if storedConfig.MaxDepth != config.MaxDepth {
		t.Errorf("Expected max depth %d, got %d", config.MaxDepth, storedConfig.MaxDepth)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	config := container.Config()
	defaultConfig := cache.DefaultConfig()

	if config.MaxDepth != defaultConfig.MaxDepth {
		t.Errorf("Expected default max depth %d, got %d", defaultConfig.MaxDepth, config.MaxDepth)
	}

	if config.Report.Format != defaultConfig.Report.Format {
		t.Errorf("Expected default report format %q, got %q", defaultConfig.Report.Format, config.Report.Format)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalidConfig := quietConfig()
	invalidConfig.MaxDepth = 0
	invalidConfig.Report.Format = "xml"

	container, err := NewContainer(invalidConfig)
	if err == nil {
		container.Close()
		t.Fatal("NewContainer() should fail with invalid config")
	}

	var configErr *cache.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("Expected a *cache.ConfigError, got %T: %v", err, err)
	}
}

func TestNewContainerFromFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "callcache.log")
	path := testsupport.WriteConfig(t, "callcache.yaml", `
max_depth: 4
report:
  enabled: false
metrics:
  enabled: true
  namespace: demo
log:
  level: warn
  file:
    path: `+logPath+`
`)

	container, err := NewContainerFromFile(path)
	if err != nil {
		t.Fatalf("NewContainerFromFile() failed: %v", err)
	}
	defer container.Close()

	config := container.Config()
	if config.MaxDepth != 4 {
		t.Errorf("Expected max depth 4, got %d", config.MaxDepth)
	}
	if config.Metrics.Namespace != "demo" {
		t.Errorf("Expected namespace demo, got %q", config.Metrics.Namespace)
	}
	if container.Registry() == nil {
		t.Fatal("Registry should be created when metrics are enabled")
	}
}

func TestNewContainerFromFile_Missing(t *testing.T) {
	_, err := NewContainerFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("NewContainerFromFile() should fail for a missing file")
	}
}

func TestContainer_BeginScope(t *testing.T) {
	container, err := NewContainer(quietConfig())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	executions := 0
	add := callcache.NewTarget("add", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
		executions++
		return args[0].(int) + args[1].(int), nil
	})

	scope, err := container.BeginScope(add)
	if err != nil {
		t.Fatalf("BeginScope() failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := scope.Call(ctx, "add", []any{2, 3}, nil)
		if err != nil {
			t.Fatalf("Call() failed: %v", err)
		}
		if got != 5 {
			t.Errorf("Expected 5, got %v", got)
		}
	}

	if err := scope.End(); err != nil {
		t.Fatalf("End() failed: %v", err)
	}

	if executions != 1 {
		t.Errorf("Expected 1 execution, got %d", executions)
	}

	stats := scope.Stats()["add"]
	if stats.Calls != 3 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestContainer_Run_Metrics(t *testing.T) {
	config := quietConfig()
	config.Metrics.Enabled = true

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	square := callcache.NewTarget("square", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
		n := args[0].(int)
		return n * n, nil
	})

	err = container.Run(context.Background(), func(ctx context.Context, s *callcache.Scope) error {
		for _, n := range []int{1, 2, 1, 2} {
			if _, err := s.Call(ctx, "square", []any{n}, nil); err != nil {
				return err
			}
		}

		families, err := container.Registry().Gather()
		if err != nil {
			return err
		}
		found := false
		for _, mf := range families {
			if mf.GetName() == "callcache_hits_total" {
				found = true
				if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
					t.Errorf("Expected 2 hits, got %v", got)
				}
			}
		}
		if !found {
			t.Error("callcache_hits_total not gathered")
		}
		return nil
	}, square)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
}

func TestContainer_Disabled(t *testing.T) {
	config := quietConfig()
	config.Enabled = false

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	executions := 0
	scope, err := container.BeginScope(callcache.NewTarget("id", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
		executions++
		return args[0], nil
	}))
	if err != nil {
		t.Fatalf("BeginScope() failed: %v", err)
	}
	defer scope.End()

	for i := 0; i < 3; i++ {
		if _, err := scope.Call(context.Background(), "id", []any{"x"}, nil); err != nil {
			t.Fatalf("Call() failed: %v", err)
		}
	}

	if executions != 3 {
		t.Errorf("Expected 3 executions when disabled, got %d", executions)
	}
}

func TestNewCachedFunc(t *testing.T) {
	container, err := NewContainer(quietConfig())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	lookups := 0
	lookup := func(ctx context.Context, id string) (string, error) {
		lookups++
		return "user-" + id, nil
	}

	cached, decorator, err := NewCachedFunc(container, "lookup", lookup)
	if err != nil {
		t.Fatalf("NewCachedFunc() failed: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"1", "1", "2", "1"} {
		got, err := cached(ctx, id)
		if err != nil {
			t.Fatalf("cached() failed: %v", err)
		}
		if got != "user-"+id {
			t.Errorf("Expected user-%s, got %s", id, got)
		}
	}

	if lookups != 2 {
		t.Errorf("Expected 2 lookups, got %d", lookups)
	}

	if decorator.Name() != "lookup" {
		t.Errorf("Expected decorator name lookup, got %s", decorator.Name())
	}

	stats := decorator.Stats()["lookup"]
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
