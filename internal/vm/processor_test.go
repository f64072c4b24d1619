package vm

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	value uint8
}

func (t *fakeTimer) Get() uint8      { return t.value }
func (t *fakeTimer) Set(value uint8) { t.value = value }

type fakeKeys struct {
	held    *Key
	presses []Key
}

func (k *fakeKeys) Pressed() (Key, bool) {
	if k.held == nil {
		return 0, false
	}
	return *k.held, true
}

func (k *fakeKeys) AwaitPress() Key {
	key := k.presses[0]
	k.presses = k.presses[1:]
	return key
}

type rig struct {
	cpu     *Processor
	mem     *Memory
	display *Display
	keys    *fakeKeys
	delay   *fakeTimer
	sound   *fakeTimer
}

// newRig loads words at ProgramStart and points PC at them.
func newRig(t *testing.T, words ...uint16) *rig {
	t.Helper()

	r := &rig{
		cpu:     NewProcessor(WithRand(rand.New(rand.NewPCG(1, 2)))),
		mem:     NewMemory(),
		display: NewDisplay(nil),
		keys:    &fakeKeys{},
		delay:   &fakeTimer{},
		sound:   &fakeTimer{},
	}
	require.NoError(t, LoadFirmware(r.mem))

	program := make([]byte, 0, len(words)*2)
	for _, w := range words {
		program = append(program, uint8(w>>8), uint8(w))
	}
	require.NoError(t, r.mem.StoreBlock(ProgramStart, program))
	r.cpu.SetPC(ProgramStart)

	return r
}

func (r *rig) run() error {
	return r.cpu.Run(r.mem, r.delay, r.display, r.keys, r.sound)
}

// step executes a single instruction with the collaborators attached.
func (r *rig) step() error {
	p := r.cpu
	p.mem, p.delay, p.display, p.keys, p.sound = r.mem, r.delay, r.display, r.keys, r.sound
	return p.step()
}

func (r *rig) exec(t *testing.T, opcode uint16) {
	t.Helper()
	require.NoError(t, r.cpu.execute(Decode(opcode)))
}

func TestProcessor_RunExample(t *testing.T) {
	r := newRig(t, 0x6105, 0x7103, 0xF000)

	require.NoError(t, r.run())
	assert.Equal(t, uint8(8), r.cpu.Register(1))
	assert.Equal(t, ProgramStart+6, r.cpu.PC())
}

func TestProcessor_RunFromReset(t *testing.T) {
	r := newRig(t, 0x6105, 0x0000)
	r.cpu.SetPC(0)

	require.NoError(t, r.run(), "boot vector jumps to the program")
	assert.Equal(t, uint8(5), r.cpu.Register(1))
}

func TestProcessor_AddThenSubRestores(t *testing.T) {
	r := newRig(t)

	for x := 0; x <= 0xFF; x++ {
		for y := 0; y <= 0xFF; y++ {
			r.cpu.SetRegister(1, uint8(x))
			r.cpu.SetRegister(2, uint8(y))

			r.exec(t, 0x8124)
			r.exec(t, 0x8125)

			if r.cpu.Register(1) != uint8(x) {
				t.Fatalf("add/sub of %d and %d gave %d", x, y, r.cpu.Register(1))
			}
		}
	}
}

func TestProcessor_Arithmetic(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		x, y   uint8
		want   uint8
		flag   uint8
	}{
		{"add", 0x8124, 0x10, 0x20, 0x30, 0},
		{"add overflow", 0x8124, 0xFF, 0x01, 0x00, 1},
		{"add overflow high", 0x8124, 0xF0, 0xF0, 0xE0, 1},
		{"sub no borrow", 0x8125, 7, 5, 2, 1},
		{"sub equal", 0x8125, 5, 5, 0, 1},
		{"sub borrow", 0x8125, 5, 7, 0xFE, 0},
		{"rsb no borrow", 0x8127, 5, 7, 2, 1},
		{"rsb borrow", 0x8127, 7, 5, 0xFE, 0},
		{"shr odd", 0x8126, 0x81, 0, 0x40, 1},
		{"shr even", 0x8126, 0x80, 0, 0x40, 0},
		{"shl high bit", 0x812E, 0x81, 0, 0x02, 1},
		{"shl no high bit", 0x812E, 0x41, 0, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.cpu.SetRegister(1, tt.x)
			r.cpu.SetRegister(2, tt.y)
			r.cpu.SetRegister(FlagRegister, 0x55)

			r.exec(t, tt.opcode)

			assert.Equal(t, tt.want, r.cpu.Register(1))
			assert.Equal(t, tt.flag, r.cpu.Register(FlagRegister))
		})
	}
}

func TestProcessor_NoFlagSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		want   uint8
	}{
		{"assign", 0x8120, 0x0F},
		{"or", 0x8121, 0xFF},
		{"and", 0x8122, 0x00},
		{"xor", 0x8123, 0xFF},
		{"load immediate", 0x6142, 0x42},
		{"add immediate wraps", 0x7111, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.cpu.SetRegister(1, 0xF0)
			r.cpu.SetRegister(2, 0x0F)
			r.cpu.SetRegister(FlagRegister, 0x55)

			r.exec(t, tt.opcode)

			assert.Equal(t, tt.want, r.cpu.Register(1))
			assert.Equal(t, uint8(0x55), r.cpu.Register(FlagRegister))
		})
	}
}

func TestProcessor_FlagRegisterAsOperand(t *testing.T) {
	r := newRig(t)
	r.cpu.SetRegister(FlagRegister, 0xFF)
	r.cpu.SetRegister(1, 0x03)

	r.exec(t, 0x8F14)
	assert.Equal(t, uint8(1), r.cpu.Register(FlagRegister), "flag wins over the result")
}

func TestProcessor_Skips(t *testing.T) {
	three := Key(3)

	tests := []struct {
		name   string
		opcode uint16
		held   *Key
		skip   bool
	}{
		{"skeq imm taken", 0x3103, nil, true},
		{"skeq imm not taken", 0x3104, nil, false},
		{"skne imm taken", 0x4104, nil, true},
		{"skne imm not taken", 0x4103, nil, false},
		{"skeq reg taken", 0x5120, nil, true},
		{"skeq reg not taken", 0x5130, nil, false},
		{"skne reg taken", 0x9130, nil, true},
		{"skne reg not taken", 0x9120, nil, false},
		{"skpr held", 0xE19E, &three, true},
		{"skpr none held", 0xE19E, nil, false},
		{"skup none held", 0xE1A1, nil, true},
		{"skup held", 0xE1A1, &three, false},
		{"skup other key held", 0xE3A1, &three, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.opcode)
			r.cpu.SetRegister(1, 3)
			r.cpu.SetRegister(2, 3)
			r.cpu.SetRegister(3, 9)
			r.keys.held = tt.held

			require.NoError(t, r.step())

			want := ProgramStart + 2
			if tt.skip {
				want = ProgramStart + 4
			}
			assert.Equal(t, want, r.cpu.PC())
		})
	}
}

func TestProcessor_CallAndReturn(t *testing.T) {
	// 200: call 300; 202: halt; 300: mov v1, 7; 302: ret
	r := newRig(t, 0x2300, 0x0000)
	require.NoError(t, r.mem.StoreBlock(0x300, []byte{0x61, 0x07, 0x00, 0xEE}))

	require.NoError(t, r.step())
	assert.Equal(t, uint16(0x300), r.cpu.PC())
	assert.Equal(t, 1, r.cpu.StackDepth())

	require.NoError(t, r.run())
	assert.Equal(t, uint8(7), r.cpu.Register(1))
	assert.Equal(t, 0, r.cpu.StackDepth())
	assert.Equal(t, ProgramStart+4, r.cpu.PC(), "returned past the call")
}

func TestProcessor_StackOverflow(t *testing.T) {
	// 200: call 200, forever
	r := newRig(t, 0x2200)

	err := r.run()
	assert.ErrorIs(t, err, ErrStackOverflow)
	assert.Equal(t, StackSize, r.cpu.StackDepth())
}

func TestProcessor_StackUnderflow(t *testing.T) {
	r := newRig(t, 0x00EE)
	assert.ErrorIs(t, r.run(), ErrStackUnderflow)
}

func TestProcessor_Jumps(t *testing.T) {
	r := newRig(t, 0x1456)
	require.NoError(t, r.step())
	assert.Equal(t, uint16(0x456), r.cpu.PC())

	r = newRig(t, 0xB300)
	r.cpu.SetRegister(0, 4)
	require.NoError(t, r.step())
	assert.Equal(t, uint16(0x304), r.cpu.PC())

	r = newRig(t, 0xBFFF)
	r.cpu.SetRegister(0, 1)
	assert.ErrorIs(t, r.step(), ErrAddressOverflow)
}

func TestProcessor_IndexInstructions(t *testing.T) {
	r := newRig(t)

	r.exec(t, 0xA123)
	assert.Equal(t, uint16(0x123), r.cpu.Index())

	r.cpu.SetRegister(4, 0x10)
	r.exec(t, 0xF41E)
	assert.Equal(t, uint16(0x133), r.cpu.Index())

	r.cpu.SetIndex(0xFFFF)
	r.exec(t, 0xF41E)
	assert.Equal(t, uint16(0x000F), r.cpu.Index(), "index wraps without a check")

	r.cpu.SetRegister(4, 0xA)
	r.exec(t, 0xF429)
	assert.Equal(t, FontBase+0xA*GlyphHeight, r.cpu.Index())
}

func TestProcessor_DecimalDump(t *testing.T) {
	r := newRig(t, 0xA300, 0x63CD, 0xF333, 0xF000)

	require.NoError(t, r.run())

	got, err := r.mem.Block(0x300, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 5}, got)
	assert.Equal(t, uint16(0x300), r.cpu.Index())
}

func TestProcessor_DecimalDumpOverflow(t *testing.T) {
	r := newRig(t)
	r.cpu.SetIndex(MaxAddress - 1)
	r.cpu.SetRegister(1, 123)

	err := r.cpu.execute(Decode(0xF133))
	assert.ErrorIs(t, err, ErrAddressOverflow)
}

func TestProcessor_RegisterDumpAndLoad(t *testing.T) {
	r := newRig(t)
	for i := 0; i < RegisterCount; i++ {
		r.cpu.SetRegister(i, uint8(0x10+i))
	}
	r.cpu.SetIndex(0x400)

	r.exec(t, 0xF355)

	got, err := r.mem.Block(0x400, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x11, 0x12, 0x13, 0x00}, got, "only v0..v3 stored")
	assert.Equal(t, uint16(0x400), r.cpu.Index())

	require.NoError(t, r.mem.StoreBlock(0x500, []byte{0xA0, 0xA1, 0xA2}))
	r.cpu.SetIndex(0x500)
	r.exec(t, 0xF165)

	assert.Equal(t, uint8(0xA0), r.cpu.Register(0))
	assert.Equal(t, uint8(0xA1), r.cpu.Register(1))
	assert.Equal(t, uint8(0x12), r.cpu.Register(2), "v2 untouched")
}

func TestProcessor_RegisterDumpOverflow(t *testing.T) {
	r := newRig(t)
	r.cpu.SetIndex(MaxAddress)

	assert.ErrorIs(t, r.cpu.execute(Decode(0xF155)), ErrAddressOverflow)
	assert.ErrorIs(t, r.cpu.execute(Decode(0xF165)), ErrAddressOverflow)

	r.cpu.SetIndex(0x2000)
	assert.ErrorIs(t, r.cpu.execute(Decode(0xF055)), ErrAddressOverflow)
}

func TestProcessor_Draw(t *testing.T) {
	// draw the "0" glyph twice at (2, 3)
	r := newRig(t, 0x6102, 0x6203, 0x6300, 0xF329, 0xD125, 0xD125, 0xF000)

	require.NoError(t, r.step())
	require.NoError(t, r.step())
	require.NoError(t, r.step())
	require.NoError(t, r.step())

	require.NoError(t, r.step())
	assert.Equal(t, uint8(1), r.cpu.Register(FlagRegister))
	assert.True(t, r.display.Pixel(2, 3))
	assert.False(t, r.display.Pixel(3, 4), "inside of the zero")

	require.NoError(t, r.step())
	assert.Equal(t, uint8(1), r.cpu.Register(FlagRegister))
	assert.Equal(t, Frame{}, r.display.Frame())
}

func TestProcessor_DrawBlankSpriteClearsFlag(t *testing.T) {
	r := newRig(t, 0xA600, 0xD015)
	r.cpu.SetRegister(FlagRegister, 1)

	require.NoError(t, r.step())
	require.NoError(t, r.step())
	assert.Equal(t, uint8(0), r.cpu.Register(FlagRegister))
}

func TestProcessor_DrawOutOfMemory(t *testing.T) {
	r := newRig(t, 0xD015)
	r.cpu.SetIndex(MaxAddress - 1)

	err := r.step()
	assert.ErrorIs(t, err, ErrMemoryAccess)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestProcessor_Clear(t *testing.T) {
	r := newRig(t, 0xD015, 0x00E0)

	require.NoError(t, r.step())
	require.NotEqual(t, Frame{}, r.display.Frame())

	require.NoError(t, r.step())
	assert.Equal(t, Frame{}, r.display.Frame())
}

func TestProcessor_Timers(t *testing.T) {
	r := newRig(t)

	r.cpu.SetRegister(3, 0x42)
	r.exec(t, 0xF315)
	assert.Equal(t, uint8(0x42), r.delay.value)

	r.exec(t, 0xF318)
	assert.Equal(t, uint8(0x42), r.sound.value)

	r.delay.value = 7
	r.exec(t, 0xF407)
	assert.Equal(t, uint8(7), r.cpu.Register(4))
}

func TestProcessor_AwaitKey(t *testing.T) {
	r := newRig(t, 0xF50A, 0xF60A, 0xF000)
	r.keys.presses = []Key{KeyB, Key2}

	require.NoError(t, r.run())
	assert.Equal(t, uint8(KeyB), r.cpu.Register(5))
	assert.Equal(t, uint8(Key2), r.cpu.Register(6))
}

func TestProcessor_Random(t *testing.T) {
	a := newRig(t)
	b := newRig(t)

	for i := 0; i < 32; i++ {
		a.exec(t, 0xC10F)
		b.exec(t, 0xC10F)

		v := a.cpu.Register(1)
		assert.Zero(t, v&0xF0, "masked")
		assert.Equal(t, v, b.cpu.Register(1), "same seed, same sequence")
	}

	a.exec(t, 0xC100)
	assert.Zero(t, a.cpu.Register(1))
}

func TestProcessor_IllegalInstruction(t *testing.T) {
	r := newRig(t, 0x6101, 0x5121)

	err := r.run()
	require.Error(t, err)

	var illegal *IllegalInstructionError
	require.True(t, errors.As(err, &illegal))
	assert.Equal(t, uint16(0x5121), illegal.Opcode)
	assert.Equal(t, "illegal instruction 0x5121", err.Error())
	assert.Equal(t, uint8(1), r.cpu.Register(1), "earlier instructions ran")
}

func TestProcessor_NoOp(t *testing.T) {
	r := newRig(t, 0x0123, 0xF117)

	require.NoError(t, r.step())
	require.NoError(t, r.step())
	assert.Equal(t, ProgramStart+4, r.cpu.PC())
}

func TestProcessor_FetchErrors(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.mem.StoreBlock(MaxAddress-1, []byte{0x60, 0x01}))
	r.cpu.SetPC(MaxAddress - 1)
	require.NoError(t, r.step(), "the last word in memory still executes")
	assert.Equal(t, uint8(1), r.cpu.Register(0))
	assert.Equal(t, uint16(MemorySize), r.cpu.PC())

	err := r.step()
	assert.ErrorIs(t, err, ErrMemoryAccess)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	r.cpu.SetPC(MaxAddress)
	err = r.run()
	assert.ErrorIs(t, err, ErrMemoryAccess)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestProcessor_SkipPastEndOfMemory(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.mem.StoreBlock(MaxAddress-1, []byte{0x30, 0x00}))
	r.cpu.SetPC(MaxAddress - 1)

	assert.ErrorIs(t, r.step(), ErrAddressOverflow)
}

func TestProcessor_Dump(t *testing.T) {
	r := newRig(t, 0x2300)
	r.cpu.SetRegister(0xA, 200)
	require.NoError(t, r.step())

	out := r.cpu.String()
	assert.Contains(t, out, "PC: 300    I: 000")
	assert.Contains(t, out, "A: C8 (200)")
	assert.Contains(t, out, "  0: 202")
	assert.Contains(t, out, ">>1: 000")
}
