//go:build !unix

package clock

func platformReader(kind Kind) reader {
	if kind == KindProcess {
		return psutilReader()
	}

	return nil
}
