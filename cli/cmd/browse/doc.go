// Package browse is an interactive terminal browser for profiler results.
//
// The browser opens on the list of profiled files, filtered by fuzzy match as
// the user types. Enter opens the annotated listing of the selected file,
// which scrolls with the arrow and page keys. Esc returns to the list.
package browse
