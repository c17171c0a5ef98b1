package trace

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ardnew/lineprof/pkg"
)

// Kind identifies the type of an [Event]. Kinds are bits so that a subscriber
// can request a set of them.
type Kind uint8

const (
	KindCall   Kind = 1 << iota // call
	KindReturn                  // return
	KindLine                    // line
	KindRaise                   // raise

	// KindAll selects every event kind.
	KindAll = KindCall | KindReturn | KindLine | KindRaise
)

var kindName = [...]struct {
	kind Kind
	name string
}{
	{KindCall, "call"},
	{KindReturn, "return"},
	{KindLine, "line"},
	{KindRaise, "raise"},
}

// Has reports whether every bit of k2 is set in k.
func (k Kind) Has(k2 Kind) bool { return k2 != 0 && k&k2 == k2 }

// String returns the kind names in k joined by "|".
func (k Kind) String() string {
	if k == 0 {
		return "none"
	}

	var names []string

	for _, kn := range kindName {
		if k&kn.kind != 0 {
			names = append(names, kn.name)
		}
	}

	if rest := k &^ KindAll; rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint8(rest)))
	}

	return strings.Join(names, "|")
}

// MarshalText implements [encoding.TextMarshaler].
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseKind].
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = v

	return nil
}

// ParseKind parses one or more kind names separated by "|" or ",".
// Names are case-insensitive; "all" selects [KindAll].
func ParseKind(s string) (Kind, error) {
	var k Kind

	for field := range strings.FieldsFuncSeq(s, func(r rune) bool {
		return r == '|' || r == ','
	}) {
		name := strings.ToLower(strings.TrimSpace(field))
		if name == "" {
			continue
		}

		if name == "all" {
			k |= KindAll

			continue
		}

		found := false

		for _, kn := range kindName {
			if kn.name == name {
				k |= kn.kind
				found = true

				break
			}
		}

		if !found {
			return 0, ErrInvalidKind.With(slog.String("kind", field))
		}
	}

	if k == 0 {
		return 0, ErrInvalidKind.With(slog.String("kind", s))
	}

	return k, nil
}

// ThreadID identifies a logical thread of execution.
type ThreadID uint64

// Event is a single notification from an instrumentation source.
//
// For [KindCall] the location is the line making the call. For [KindLine] it
// is the line about to execute in the current activation. [KindReturn] and
// [KindRaise] end the current activation; their location is informational.
//
// A source may leave the location unresolved: PC is then a return address
// captured by [runtime.Callers], File is empty, and Line is an offset added
// to the line PC resolves to. Handlers that need the location call
// [Event.Resolve].
type Event struct {
	File   string
	Line   int
	Thread ThreadID
	PC     uintptr
	Kind   Kind
}

// Resolve sets File and Line from PC, if PC is set, and clears PC.
// Locations are cached per PC, so only the first resolution of each call
// site allocates.
func (e *Event) Resolve() {
	if e.PC == 0 {
		return
	}

	loc := locate(e.PC)
	e.File, e.Line, e.PC = loc.file, loc.line+e.Line, 0
}

// LogValue implements [slog.LogValuer].
func (e Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", e.Kind.String()),
		slog.String("file", e.File),
		slog.Int("line", e.Line),
		slog.Uint64("thread", uint64(e.Thread)),
	)
}

// Handler receives events from a [Source].
// HandleEvent is called on the goroutine that produced the event and must not
// retain it.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts an ordinary function to a [Handler].
type HandlerFunc func(Event)

// HandleEvent calls f(e).
func (f HandlerFunc) HandleEvent(e Event) { f(e) }

// Pinned is implemented by sources whose threads each run on a single OS
// thread while a subscriber is installed. Processor time can then be read
// per thread.
type Pinned interface {
	Pinned() bool
}

// IsPinned reports whether src implements [Pinned] and is pinned.
func IsPinned(src Source) bool {
	p, ok := src.(Pinned)

	return ok && p.Pinned()
}

// Source is a stream of execution events.
//
// Subscribe installs h to receive every event whose kind is in kinds.
// Sources that support a single subscriber return [ErrSubscribed] when one is
// already installed. Unsubscribe removes the subscriber; it is safe to call
// more than once. Events already being delivered when Unsubscribe returns may
// still reach the handler.
type Source interface {
	Subscribe(kinds Kind, h Handler) error
	Unsubscribe()
}

var (
	// ErrSubscribed indicates a source already has a subscriber.
	ErrSubscribed = pkg.NewError("source already has a subscriber")
	// ErrInvalidKind indicates an unrecognized event kind name.
	ErrInvalidKind = pkg.NewError("invalid event kind")
)
