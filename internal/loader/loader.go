// Package loader fills machine memory with a program, either from a raw ROM
// image or from the hex text format:
//
//	# comment
//	0200   00E0 6380 6400
//	0210   D455F129
//
// Each line is a 4 digit hex address followed by data bytes written as hex
// digit pairs; whitespace between groups is ignored.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/finiteint/chip8/internal/vm"
)

type Format string

const (
	FormatAuto Format = "auto"
	FormatROM  Format = "rom"
	FormatHex  Format = "hex"
)

var ErrMalformed = errors.New("malformed line")

// Segment is a run of bytes to be written at Addr.
type Segment struct {
	Addr uint16
	Data []byte
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".mem", ".txt":
		return FormatHex
	default:
		return FormatROM
	}
}

// ParseFormat validates a format name given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatROM, FormatHex:
		return f, nil
	default:
		return "", fmt.Errorf("unknown program format %q", s)
	}
}

// Load writes the program into memory and returns the loaded segments.
func Load(mem *vm.Memory, data []byte, format Format) ([]Segment, error) {
	switch format {
	case FormatHex:
		return LoadHex(mem, bytes.NewReader(data))
	case FormatROM:
		seg, err := LoadROM(mem, data)
		if err != nil {
			return nil, err
		}
		return []Segment{seg}, nil
	default:
		return nil, fmt.Errorf("unsupported program format %q", format)
	}
}

// LoadROM writes a raw image at vm.ProgramStart.
func LoadROM(mem *vm.Memory, rom []byte) (Segment, error) {
	if err := mem.StoreBlock(vm.ProgramStart, rom); err != nil {
		return Segment{}, fmt.Errorf("unable to load rom of %d bytes: %w", len(rom), err)
	}
	return Segment{Addr: vm.ProgramStart, Data: rom}, nil
}

// LoadHex parses hex text and writes every segment into memory.
func LoadHex(mem *vm.Memory, r io.Reader) ([]Segment, error) {
	segments, err := ParseHex(r)
	if err != nil {
		return nil, err
	}

	for _, seg := range segments {
		if err := mem.StoreBlock(seg.Addr, seg.Data); err != nil {
			return nil, fmt.Errorf("unable to load segment at 0x%04X: %w", seg.Addr, err)
		}
	}

	return segments, nil
}

// ParseHex reads hex text into segments, in file order.
func ParseHex(r io.Reader) ([]Segment, error) {
	var segments []Segment

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		seg, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		segments = append(segments, seg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read hex program: %w", err)
	}

	return segments, nil
}

func parseLine(line string) (Segment, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Segment{}, fmt.Errorf("%w: %q: no data", ErrMalformed, line)
	}

	if len(fields[0]) != 4 {
		return Segment{}, fmt.Errorf("%w: %q: address must be 4 hex digits", ErrMalformed, line)
	}
	addr, err := strconv.ParseUint(fields[0], 16, 16)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %q: bad address", ErrMalformed, line)
	}

	digits := strings.Join(fields[1:], "")
	if len(digits)%2 != 0 {
		return Segment{}, fmt.Errorf("%w: %q: odd number of hex digits", ErrMalformed, line)
	}

	data := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		b, err := strconv.ParseUint(digits[i:i+2], 16, 8)
		if err != nil {
			return Segment{}, fmt.Errorf("%w: %q: bad byte %q", ErrMalformed, line, digits[i:i+2])
		}
		data = append(data, byte(b))
	}

	return Segment{Addr: uint16(addr), Data: data}, nil
}
