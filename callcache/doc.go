// Package callcache memoizes calls to deterministic functions and records
// per-function statistics.
//
// # Overview
//
// A Scope intercepts a set of named targets between Begin and End. Calls go
// through an Interceptor that looks up the canonical key of the arguments,
// returns a stored result on a hit and executes and stores on a miss.
// When the scope ends, patched function variables are restored and a report
// with a caching recommendation per target is emitted.
//
// # Key Features
//
//   - **Explicit interception**: targets are wrapped or installed into function variables, nothing is patched behind the caller's back
//   - **Conservative bypass**: calls with a function argument are never cached or counted
//   - **Unhashable arguments**: calls whose arguments cannot be normalized run uncached and count as misses
//   - **Type-safe wrappers**: Wrap1..3, Pure1..3 and Install1..3 keep the target's signature
//   - **Object decorators**: Decorator caches selected methods with per-method statistics
//
// # Basic Usage
//
//	var fib func(int) int
//	fib = func(n int) int {
//		if n < 2 {
//			return n
//		}
//		return fib(n-1) + fib(n-2)
//	}
//
//	err := callcache.Run(ctx, nil, func(ctx context.Context, s *callcache.Scope) error {
//		if err := callcache.Install1(s, "fib", &fib); err != nil {
//			return err
//		}
//		fmt.Println(fib(40))
//		return nil
//	})
//
// # Caching Behavior
//
//  1. A top level function argument bypasses the cache entirely
//  2. Arguments are normalized into a cache.CallKey
//  3. On a hit the stored result is returned and a hit is counted
//  4. On a miss the target runs, its result is stored unless it returned an error, and a miss is counted
//
// A stored entry is never replaced. Entries live as long as their scope or decorator.
//
// # Ambient Scope
//
// WithScope and ScopeFromContext carry the active scope through a context;
// the package level Call uses it when present and calls the function
// directly otherwise.
package callcache
