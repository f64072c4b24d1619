package vm

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	// MaxAddress is the highest addressable byte; address arithmetic past it
	// fails with ErrAddressOverflow.
	MaxAddress = uint16(MemorySize - 1)

	ProgramStart    = uint16(0x200)
	InstructionSize = 2

	// FlagRegister (VF) receives carry, borrow, shifted-out bits and collisions.
	FlagRegister = 0x0F
)

// Keyboard is the hexadecimal keypad as seen by the processor.
type Keyboard interface {
	// Pressed returns the last known key that is still held down.
	Pressed() (Key, bool)

	// AwaitPress blocks until a key press is available and consumes it.
	AwaitPress() Key
}

// Timer is a countdown register owned by a background clock. Get and Set
// never block.
type Timer interface {
	Get() uint8
	Set(value uint8)
}

// Renderer receives a copy of the framebuffer each time it changes.
type Renderer interface {
	Refresh(frame Frame)
}

// Beeper plays a tone while the sound timer is non-zero.
type Beeper interface {
	Tone(on bool)
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)
