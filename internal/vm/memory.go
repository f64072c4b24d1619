package vm

import (
	"errors"
	"fmt"
	"io"
)

var ErrOutOfBounds = errors.New("out of bounds")

// Memory is the flat 4k address space. Every accessor is bounds checked.
type Memory struct {
	data [MemorySize]uint8
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Size() int {
	return len(m.data)
}

func (m *Memory) Load(addr uint16) (uint8, error) {
	if int(addr) >= len(m.data) {
		return 0, outOfBounds(int(addr))
	}

	return m.data[addr], nil
}

func (m *Memory) Store(addr uint16, value uint8) error {
	if int(addr) >= len(m.data) {
		return outOfBounds(int(addr))
	}

	m.data[addr] = value
	return nil
}

// LoadWord reads a big-endian word; both bytes must be addressable.
func (m *Memory) LoadWord(addr uint16) (uint16, error) {
	if int(addr)+1 >= len(m.data) {
		return 0, outOfBounds(int(addr) + 1)
	}

	hi := m.data[addr]
	lo := m.data[addr+1]
	return uint16(hi)<<8 | uint16(lo), nil
}

// StoreBlock copies data starting at start. Nothing is written unless the
// whole span fits.
func (m *Memory) StoreBlock(start uint16, data []byte) error {
	end := int(start) + len(data)
	if int(start) >= len(m.data) || end > len(m.data) {
		return fmt.Errorf("%w: block 0x%04X-0x%04X", ErrOutOfBounds, start, end)
	}

	copy(m.data[start:end], data)
	return nil
}

// Block returns a copy of n bytes starting at start.
func (m *Memory) Block(start uint16, n int) ([]byte, error) {
	end := int(start) + n
	if n < 0 || int(start) > len(m.data) || end > len(m.data) {
		return nil, fmt.Errorf("%w: block 0x%04X-0x%04X", ErrOutOfBounds, start, end)
	}

	bs := make([]byte, n)
	copy(bs, m.data[start:end])
	return bs, nil
}

// Dump writes every non-zero 16 byte row; runs of zero rows are shown as "...".
func (m *Memory) Dump(w io.Writer) {
	const rowSize = 16

	fmt.Fprintln(w, "Memory:")
	skipped := false
	for addr := 0; addr < len(m.data); addr += rowSize {
		row := m.data[addr : addr+rowSize]
		if isZero(row) {
			skipped = true
			continue
		}

		if skipped {
			fmt.Fprintln(w, "   ...")
			skipped = false
		}

		fmt.Fprintf(w, " %03X:", addr)
		for i, b := range row {
			if i%2 == 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%02X", b)
		}
		fmt.Fprintln(w)
	}

	if skipped {
		fmt.Fprintln(w, "   ...")
	}
}

func isZero(bs []uint8) bool {
	for _, b := range bs {
		if b != 0 {
			return false
		}
	}
	return true
}

func outOfBounds(addr int) error {
	return fmt.Errorf("%w: address 0x%04X", ErrOutOfBounds, addr)
}
