//go:build unix && !linux

package clock

// On other Unix systems process time falls back to getrusage.
func platformReader(kind Kind) reader {
	switch kind {
	case KindProcess, KindRusage:
		return rusage
	default:
		return nil
	}
}
