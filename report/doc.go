// Package report renders profiler results.
//
// [Text] prints an annotated source listing per file followed by the file's
// summary. [JSON] and [YAML] serialize a [Document], and [Table] returns the
// compact numeric form keyed by file path. [Select] picks files by fuzzy
// match against their paths.
package report
