package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-callcache/callcache"
	"github.com/spf13/cobra"
)

func newFibCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fib [n]",
		Short: "Compare a recursive fibonacci with and without caching",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 30
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 0 {
					return fmt.Errorf("fib: invalid n %q", args[0])
				}
				n = v
			}
			return runFib(cmd, a, n)
		},
	}
}

// newFib returns a recursive fibonacci that recurses through the returned
// variable, so installing a scope on it caches the inner calls too.
func newFib() *func(int) int {
	var fib func(int) int
	fib = func(n int) int {
		if n <= 1 {
			return n
		}
		return fib(n-1) + fib(n-2)
	}
	return &fib
}

func runFib(cmd *cobra.Command, a *app, n int) error {
	out := cmd.OutOrStdout()
	fib := newFib()

	start := time.Now()
	result := (*fib)(n)
	fmt.Fprintf(out, "Without caching: fib(%d) = %d, time: %s\n", n, result, time.Since(start))

	return callcache.Run(cmd.Context(), nil, func(ctx context.Context, s *callcache.Scope) error {
		if err := callcache.Install1(s, "fib", fib); err != nil {
			return err
		}

		start := time.Now()
		result := (*fib)(n)
		fmt.Fprintf(out, "With caching: fib(%d) = %d, time: %s\n", n, result, time.Since(start))
		return nil
	}, a.scopeOptions(cmd)...)
}
