package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Total(t *testing.T) {
	for opcode := 0; opcode <= 0xFFFF; opcode++ {
		instr := Decode(uint16(opcode))
		require.Less(t, instr.Op, opCount, "opcode 0x%04X", opcode)
		require.Equal(t, uint16(opcode), instr.Opcode)
		require.NotNil(t, handlers[instr.Op], "no handler for %s", instr.Op)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		opcode uint16
		want   Instruction
	}{
		{0x0000, Instruction{Op: OpHalt}},
		{0x00E0, Instruction{Op: OpClear}},
		{0x00EE, Instruction{Op: OpReturn}},
		{0x0123, Instruction{Op: OpNoOp}},
		{0x1ABC, Instruction{Op: OpJump, NNN: 0xABC}},
		{0x2300, Instruction{Op: OpCall, NNN: 0x300}},
		{0x3A42, Instruction{Op: OpSkipEqImm, X: 0xA, NN: 0x42}},
		{0x4B42, Instruction{Op: OpSkipNeImm, X: 0xB, NN: 0x42}},
		{0x5120, Instruction{Op: OpSkipEqReg, X: 1, Y: 2}},
		{0x5121, Instruction{Op: OpUnsupported}},
		{0x6105, Instruction{Op: OpLoadImm, X: 1, NN: 5}},
		{0x7103, Instruction{Op: OpAddImm, X: 1, NN: 3}},
		{0x8120, Instruction{Op: OpAssign, X: 1, Y: 2}},
		{0x8121, Instruction{Op: OpOr, X: 1, Y: 2}},
		{0x8122, Instruction{Op: OpAnd, X: 1, Y: 2}},
		{0x8123, Instruction{Op: OpXor, X: 1, Y: 2}},
		{0x8124, Instruction{Op: OpAdd, X: 1, Y: 2}},
		{0x8125, Instruction{Op: OpSub, X: 1, Y: 2}},
		{0x8126, Instruction{Op: OpShiftRight, X: 1}},
		{0x8127, Instruction{Op: OpSubReversed, X: 1, Y: 2}},
		{0x812E, Instruction{Op: OpShiftLeft, X: 1}},
		{0x8128, Instruction{Op: OpUnsupported}},
		{0x9120, Instruction{Op: OpSkipNeReg, X: 1, Y: 2}},
		{0x912F, Instruction{Op: OpUnsupported}},
		{0xA123, Instruction{Op: OpSetIndex, NNN: 0x123}},
		{0xB123, Instruction{Op: OpJumpOffset, NNN: 0x123}},
		{0xC30F, Instruction{Op: OpRandom, X: 3, NN: 0x0F}},
		{0xD125, Instruction{Op: OpDraw, X: 1, Y: 2, NN: 5}},
		{0xE59E, Instruction{Op: OpSkipKey, X: 5}},
		{0xE5A1, Instruction{Op: OpSkipNoKey, X: 5}},
		{0xE5A2, Instruction{Op: OpUnsupported}},
		{0xF407, Instruction{Op: OpGetDelay, X: 4}},
		{0xF40A, Instruction{Op: OpAwaitKey, X: 4}},
		{0xF415, Instruction{Op: OpSetDelay, X: 4}},
		{0xF417, Instruction{Op: OpNoOp}},
		{0xF418, Instruction{Op: OpSetSound, X: 4}},
		{0xF41E, Instruction{Op: OpAddIndex, X: 4}},
		{0xF429, Instruction{Op: OpGlyph, X: 4}},
		{0xF433, Instruction{Op: OpDecimal, X: 4}},
		{0xF455, Instruction{Op: OpStoreRegs, X: 4}},
		{0xF465, Instruction{Op: OpLoadRegs, X: 4}},
		{0xF000, Instruction{Op: OpHalt}},
		{0xF100, Instruction{Op: OpUnsupported}},
		{0xF4FF, Instruction{Op: OpUnsupported}},
	}

	for _, tt := range tests {
		t.Run(tt.want.Op.String(), func(t *testing.T) {
			want := tt.want
			want.Opcode = tt.opcode
			assert.Equal(t, want, Decode(tt.opcode), "opcode 0x%04X", tt.opcode)
		})
	}
}

func TestInstruction_String(t *testing.T) {
	tests := []struct {
		opcode uint16
		want   string
	}{
		{0x0000, "halt"},
		{0xF000, "halt"},
		{0x00E0, "cls"},
		{0x0123, "nop 0x0123"},
		{0x1234, "jmp 0x234"},
		{0x6105, "mov v1, 5"},
		{0x7103, "add v1, 3"},
		{0x81A4, "add v1, va"},
		{0x8106, "shr v1"},
		{0xD125, "sprite v1, v2, 5"},
		{0xF233, "bcd v2"},
		{0x5121, "unknown 0x5121"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Decode(tt.opcode).String())
	}
}
