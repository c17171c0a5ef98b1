package filter

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/lineprof/pkg"
)

// Filter reports whether a source file is tracked.
// Implementations must be safe for concurrent use.
type Filter interface {
	Match(path string) bool
	String() string
}

var (
	// ErrEmptyFilter indicates a filter spec with nothing to match.
	ErrEmptyFilter = pkg.NewError("empty filter")
	// ErrInvalidPattern indicates a regular expression that does not compile.
	ErrInvalidPattern = pkg.NewError("invalid filter pattern")
	// ErrInvalidExpr indicates an expression that does not compile to a
	// boolean program.
	ErrInvalidExpr = pkg.NewError("invalid filter expression")
)

// Spec prefixes recognized by [Parse].
const (
	PrefixRegexp = "re:"
	PrefixExpr   = "expr:"
	PrefixDirs   = "dir:"
)

// Parse builds a [Filter] from its textual form. See the package
// documentation for the recognized forms.
func Parse(spec string) (Filter, error) {
	s := strings.TrimSpace(spec)

	switch {
	case s == "":
		return nil, ErrEmptyFilter

	case s == "*" || strings.EqualFold(s, "all"):
		return All(), nil

	case strings.HasPrefix(s, PrefixRegexp):
		return Regexp(strings.TrimPrefix(s, PrefixRegexp))

	case strings.HasPrefix(s, PrefixExpr):
		return Expr(strings.TrimPrefix(s, PrefixExpr))

	case strings.HasPrefix(s, PrefixDirs):
		return Dirs(strings.TrimPrefix(s, PrefixDirs))

	default:
		return Path(s), nil
	}
}

type all struct{}

// All returns a [Filter] matching every file.
func All() Filter { return all{} }

func (all) Match(string) bool { return true }
func (all) String() string    { return "*" }

type path string

// Path returns a [Filter] matching exactly one file. Both p and the candidate
// are compared in [filepath.Clean] form.
func Path(p string) Filter { return path(filepath.Clean(p)) }

func (p path) Match(s string) bool {
	return s == string(p) || filepath.Clean(s) == string(p)
}

func (p path) String() string { return string(p) }

type pattern struct{ re *regexp.Regexp }

// Regexp returns a [Filter] matching files whose path contains a match of the
// regular expression expr.
func Regexp(expr string) (Filter, error) {
	if expr == "" {
		return nil, ErrEmptyFilter
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, ErrInvalidPattern.Wrap(err).With(slog.String("pattern", expr))
	}

	return pattern{re: re}, nil
}

func (p pattern) Match(s string) bool { return p.re.MatchString(s) }
func (p pattern) String() string      { return PrefixRegexp + p.re.String() }

// exprEnv is the environment of a filter expression.
type exprEnv struct {
	File string `expr:"file"`
	Base string `expr:"base"`
	Dir  string `expr:"dir"`
	Ext  string `expr:"ext"`
}

type program struct {
	prog   *vm.Program
	source string
}

// Expr returns a [Filter] evaluating an expr-lang boolean program for each
// file. A program that fails at run time does not match.
func Expr(source string) (Filter, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyFilter
	}

	prog, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, ErrInvalidExpr.Wrap(err).With(slog.String("source", source))
	}

	return program{prog: prog, source: source}, nil
}

func (p program) Match(s string) bool {
	out, err := expr.Run(p.prog, exprEnv{
		File: s,
		Base: filepath.Base(s),
		Dir:  filepath.Dir(s),
		Ext:  filepath.Ext(s),
	})
	if err != nil {
		return false
	}

	ok, _ := out.(bool)

	return ok
}

func (p program) String() string { return PrefixExpr + p.source }

type dirs struct {
	list []string
	text string
}

// Dirs returns a [Filter] matching files under any directory of a list
// separated by [os.PathListSeparator]. Blank entries are ignored, and entries
// naming the same directory are kept once.
func Dirs(list string) (Filter, error) {
	sep := string(os.PathListSeparator)

	items := mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(sep),
		mung.WithFilter(func(s string) bool { return strings.TrimSpace(s) != "" }),
	).Filtered()

	var d dirs

	for item := range items {
		if dir := filepath.Clean(strings.TrimSpace(item)); !slices.Contains(d.list, dir) {
			d.list = append(d.list, dir)
		}
	}

	if len(d.list) == 0 {
		return nil, ErrEmptyFilter
	}

	d.text = strings.Join(d.list, sep)

	return d, nil
}

func (d dirs) Match(s string) bool {
	s = filepath.Clean(s)

	for _, dir := range d.list {
		rel, err := filepath.Rel(dir, s)
		if err == nil && rel != "." && rel != ".." &&
			!strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

func (d dirs) String() string { return PrefixDirs + d.text }

type fn struct {
	match func(string) bool
	name  string
}

// Func adapts match to a [Filter] described by name.
func Func(name string, match func(string) bool) Filter {
	return fn{match: match, name: name}
}

func (f fn) Match(s string) bool { return f.match(s) }
func (f fn) String() string      { return f.name }

type memo struct {
	Filter

	cache sync.Map // string -> bool
}

// Memo wraps f with a concurrent cache of both positive and negative answers.
// f must be deterministic. Memoizing a memoized filter returns it unchanged.
func Memo(f Filter) Filter {
	switch f.(type) {
	case *memo, all:
		return f
	}

	return &memo{Filter: f}
}

func (m *memo) Match(s string) bool {
	if v, ok := m.cache.Load(s); ok {
		return v.(bool) //nolint:forcetypeassert
	}

	ok := m.Filter.Match(s)
	m.cache.Store(s, ok)

	return ok
}
