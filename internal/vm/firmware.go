package vm

import "fmt"

// FontBase is where the built-in hex digit glyphs live.
const FontBase = uint16(0x100)

// bootVector jumps from the reset address (0x000) to the program area.
var bootVector = []uint8{
	0x10 | uint8(ProgramStart>>8), uint8(ProgramStart & 0xFF),
}

var glyphs = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// LoadFirmware installs the boot vector at 0x000 and the glyphs at FontBase.
func LoadFirmware(mem *Memory) error {
	if err := mem.StoreBlock(0, bootVector); err != nil {
		return fmt.Errorf("unable to load boot vector: %w", err)
	}

	if err := mem.StoreBlock(FontBase, glyphs); err != nil {
		return fmt.Errorf("unable to load font: %w", err)
	}

	return nil
}
