// Package filter decides which source files a profile tracks.
//
// A [Filter] is a pure predicate over file paths. Filters are built from a
// textual spec by [Parse]:
//
//	*, all            every file
//	re:<pattern>      files whose path matches a regular expression
//	expr:<program>    files for which an expr-lang program is true
//	dir:<list>        files under any directory in a PATH-style list
//	<path>            exactly one file
//
// Expression programs see the variables file, base, dir, and ext:
//
//	expr:ext == ".go" && !(base endsWith "_test.go")
//
// The profiler consults its filter on every event, so it wraps it with
// [Memo] to make repeated lookups O(1).
package filter
