package program

import "bytes"

// newReaderAt adapts a byte slice to the io.ReaderAt debug/elf.NewFile
// expects.
func newReaderAt(data []byte) *bytes.Reader {
	return bytes.NewReader(data)
}
