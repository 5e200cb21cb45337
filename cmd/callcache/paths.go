package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/goliatone/go-callcache/callcache"
	"github.com/spf13/cobra"
)

// Point is a location on the plane.
type Point struct {
	X float64
	Y float64
}

var defaultObstacles = []Point{{20, 30}, {50, 60}, {70, 80}}

// pathSolver keeps its functions in variables so a scope can install on them.
type pathSolver struct {
	distance     func(a, b Point) float64
	shortestPath func(a, b Point, obstacles []Point) float64
}

func newPathSolver() *pathSolver {
	p := &pathSolver{}
	p.distance = func(a, b Point) float64 {
		return math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	p.shortestPath = func(a, b Point, obstacles []Point) float64 {
		best := p.distance(a, b)
		for _, o := range obstacles {
			best = math.Min(best, p.distance(a, o)+p.distance(o, b))
		}
		return best
	}
	return p
}

type pathResult struct {
	From, To int
	Distance float64
}

func newPathsCommand(a *app) *cobra.Command {
	var (
		points int
		seed   int64
		head   int
	)

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Compute shortest paths with obstacles between random points",
		RunE: func(cmd *cobra.Command, args []string) error {
			if points < 2 {
				return fmt.Errorf("paths: need at least 2 points, got %d", points)
			}
			return runPaths(cmd, a, randomPoints(points, seed), head)
		},
	}

	cmd.Flags().IntVarP(&points, "points", "n", 100, "number of random locations")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&head, "head", 5, "number of results to print")
	return cmd
}

func randomPoints(n int, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Point, n)
	for i := range out {
		out[i] = Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
	}
	return out
}

func runPaths(cmd *cobra.Command, a *app, locations []Point, head int) error {
	out := cmd.OutOrStdout()
	solver := newPathSolver()

	return callcache.Run(cmd.Context(), nil, func(ctx context.Context, s *callcache.Scope) error {
		if err := callcache.Install2(s, "distance", &solver.distance); err != nil {
			return err
		}
		if err := callcache.Install3(s, "shortest_path", &solver.shortestPath); err != nil {
			return err
		}

		var results []pathResult
		for i := 0; i < len(locations); i++ {
			for j := i + 1; j < len(locations); j++ {
				results = append(results, pathResult{
					From:     i + 1,
					To:       j + 1,
					Distance: solver.shortestPath(locations[i], locations[j], defaultObstacles),
				})
			}
		}

		fmt.Fprintf(out, "%d pairs computed\n", len(results))
		for _, r := range results[:min(head, len(results))] {
			fmt.Fprintf(out, "(%d, %d)\t%.4f\n", r.From, r.To, r.Distance)
		}
		return nil
	}, a.scopeOptions(cmd)...)
}
