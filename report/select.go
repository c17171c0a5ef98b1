package report

import (
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/lineprof/profiler"
)

// Match ranks paths against pattern, best match first. An empty pattern
// matches every path in its given order.
func Match(paths []string, pattern string) fuzzy.Matches {
	if pattern == "" {
		matches := make(fuzzy.Matches, len(paths))
		for i, p := range paths {
			matches[i] = fuzzy.Match{Str: p, Index: i}
		}

		return matches
	}

	return fuzzy.Find(pattern, paths)
}

// Select returns the paths of res that fuzzy-match pattern, best match
// first. An empty pattern selects every path in sorted order.
func Select(res *profiler.Result, pattern string) []string {
	matches := Match(res.Paths(), pattern)

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Str
	}

	return paths
}
