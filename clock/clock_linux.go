package clock

import "golang.org/x/sys/unix"

func platformReader(kind Kind) reader {
	switch kind {
	case KindProcess:
		return clockGettime(unix.CLOCK_PROCESS_CPUTIME_ID)
	case KindThread:
		return clockGettime(unix.CLOCK_THREAD_CPUTIME_ID)
	case KindRusage:
		return rusage
	default:
		return nil
	}
}

func clockGettime(id int32) reader {
	return func() (int64, bool) {
		var ts unix.Timespec
		if err := unix.ClockGettime(id, &ts); err != nil {
			return 0, false
		}

		return ts.Nano(), true
	}
}
