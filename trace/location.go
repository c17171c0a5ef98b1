package trace

import (
	"runtime"
	"sync"
)

type location struct {
	file string
	line int
}

var locations = struct {
	sync.RWMutex
	m map[uintptr]location
}{m: make(map[uintptr]location, 256)}

// locate returns the source location of the return address pc.
func locate(pc uintptr) location {
	locations.RLock()
	loc, ok := locations.m[pc]
	locations.RUnlock()

	if ok {
		return loc
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	loc = location{file: frame.File, line: frame.Line}

	locations.Lock()
	locations.m[pc] = loc
	locations.Unlock()

	return loc
}
