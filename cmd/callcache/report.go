package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-callcache/cache"
	"github.com/goliatone/go-callcache/callcache"
	"github.com/spf13/cobra"
)

func newReportCommand(a *app) *cobra.Command {
	var rounds int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a synthetic workload covering every benefit class",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rounds < 1 {
				return fmt.Errorf("report: rounds must be positive, got %d", rounds)
			}
			return runReport(cmd, a, rounds)
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 20, "calls per target")
	return cmd
}

func demoTargets() []callcache.Target {
	return []callcache.Target{
		callcache.NewTarget("lookup", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
			return fmt.Sprintf("user-%v", args[0]), nil
		}),
		callcache.NewTarget("score", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
			return args[0].(int) * 7 % 11, nil
		}),
		callcache.NewTarget("nonce", func(ctx context.Context, args []any, kwargs cache.Kwargs) (any, error) {
			return args[0], nil
		}),
	}
}

// runReport calls lookup over 2 keys, score over half as many keys as
// rounds and nonce with a fresh key every time.
func runReport(cmd *cobra.Command, a *app, rounds int) error {
	return callcache.Run(cmd.Context(), demoTargets(), func(ctx context.Context, s *callcache.Scope) error {
		for i := 0; i < rounds; i++ {
			if _, err := s.Call(ctx, "lookup", []any{i % 2}, nil); err != nil {
				return err
			}
			if _, err := s.Call(ctx, "score", []any{i / 2}, nil); err != nil {
				return err
			}
			if _, err := s.Call(ctx, "nonce", []any{i}, nil); err != nil {
				return err
			}
		}
		return nil
	}, a.scopeOptions(cmd)...)
}
