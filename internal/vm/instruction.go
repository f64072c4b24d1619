package vm

import "fmt"

// Op identifies a decoded instruction variant.
type Op uint8

const (
	OpUnsupported Op = iota
	OpNoOp
	OpHalt
	OpClear
	OpReturn
	OpJump
	OpCall
	OpSkipEqImm
	OpSkipNeImm
	OpSkipEqReg
	OpSkipNeReg
	OpLoadImm
	OpAddImm
	OpAssign
	OpOr
	OpAnd
	OpXor
	OpAdd
	OpSub
	OpShiftRight
	OpSubReversed
	OpShiftLeft
	OpSetIndex
	OpJumpOffset
	OpRandom
	OpDraw
	OpSkipKey
	OpSkipNoKey
	OpGetDelay
	OpAwaitKey
	OpSetDelay
	OpSetSound
	OpAddIndex
	OpGlyph
	OpDecimal
	OpStoreRegs
	OpLoadRegs

	opCount
)

// Instruction is a decoded opcode. Only the operands used by Op are set.
type Instruction struct {
	Op Op

	X   uint8  // first register operand (bits 8-11)
	Y   uint8  // second register operand (bits 4-7)
	NN  uint8  // immediate byte, or sprite height for OpDraw
	NNN uint16 // 12 bit address

	Opcode uint16
}

type operands uint8

const (
	noOperands operands = iota
	addrOperand
	regImmOperands
	regRegOperands
	regOperand
	drawOperands
	rawOperand
)

var mnemonics = [opCount]struct {
	name     string
	operands operands
}{
	OpUnsupported: {"unknown", rawOperand},
	OpNoOp:        {"nop", rawOperand},
	OpHalt:        {"halt", noOperands},
	OpClear:       {"cls", noOperands},
	OpReturn:      {"rts", noOperands},
	OpJump:        {"jmp", addrOperand},
	OpCall:        {"jsr", addrOperand},
	OpSkipEqImm:   {"skeq", regImmOperands},
	OpSkipNeImm:   {"skne", regImmOperands},
	OpSkipEqReg:   {"skeq", regRegOperands},
	OpSkipNeReg:   {"skne", regRegOperands},
	OpLoadImm:     {"mov", regImmOperands},
	OpAddImm:      {"add", regImmOperands},
	OpAssign:      {"mov", regRegOperands},
	OpOr:          {"or", regRegOperands},
	OpAnd:         {"and", regRegOperands},
	OpXor:         {"xor", regRegOperands},
	OpAdd:         {"add", regRegOperands},
	OpSub:         {"sub", regRegOperands},
	OpShiftRight:  {"shr", regOperand},
	OpSubReversed: {"rsb", regRegOperands},
	OpShiftLeft:   {"shl", regOperand},
	OpSetIndex:    {"mvi", addrOperand},
	OpJumpOffset:  {"jmi", addrOperand},
	OpRandom:      {"rand", regImmOperands},
	OpDraw:        {"sprite", drawOperands},
	OpSkipKey:     {"skpr", regOperand},
	OpSkipNoKey:   {"skup", regOperand},
	OpGetDelay:    {"gdelay", regOperand},
	OpAwaitKey:    {"key", regOperand},
	OpSetDelay:    {"sdelay", regOperand},
	OpSetSound:    {"ssound", regOperand},
	OpAddIndex:    {"adi", regOperand},
	OpGlyph:       {"font", regOperand},
	OpDecimal:     {"bcd", regOperand},
	OpStoreRegs:   {"str", regOperand},
	OpLoadRegs:    {"ldr", regOperand},
}

func (op Op) String() string {
	if op >= opCount {
		return fmt.Sprintf("op(%d)", uint8(op))
	}
	return mnemonics[op].name
}

// String renders the instruction as assembly, e.g. "add v1, 3".
func (in Instruction) String() string {
	if in.Op >= opCount {
		return in.Op.String()
	}

	m := mnemonics[in.Op]
	switch m.operands {
	case addrOperand:
		return fmt.Sprintf("%s 0x%03x", m.name, in.NNN)
	case regImmOperands:
		return fmt.Sprintf("%s v%x, %d", m.name, in.X, in.NN)
	case regRegOperands:
		return fmt.Sprintf("%s v%x, v%x", m.name, in.X, in.Y)
	case regOperand:
		return fmt.Sprintf("%s v%x", m.name, in.X)
	case drawOperands:
		return fmt.Sprintf("%s v%x, v%x, %d", m.name, in.X, in.Y, in.NN)
	case rawOperand:
		return fmt.Sprintf("%s 0x%04X", m.name, in.Opcode)
	default:
		return m.name
	}
}

// Decode maps every 16 bit opcode to exactly one instruction. Unknown bit
// patterns decode to OpUnsupported rather than failing.
func Decode(opcode uint16) Instruction {
	x := uint8((opcode & 0x0F00) >> 8)
	y := uint8((opcode & 0x00F0) >> 4)
	nn := uint8(opcode & 0x00FF)
	nnn := opcode & 0x0FFF

	regImm := func(op Op) Instruction {
		return Instruction{Op: op, X: x, NN: nn, Opcode: opcode}
	}
	regReg := func(op Op) Instruction {
		return Instruction{Op: op, X: x, Y: y, Opcode: opcode}
	}
	reg := func(op Op) Instruction {
		return Instruction{Op: op, X: x, Opcode: opcode}
	}
	addr := func(op Op) Instruction {
		return Instruction{Op: op, NNN: nnn, Opcode: opcode}
	}

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x0000:
			return Instruction{Op: OpHalt, Opcode: opcode}

		case 0x00E0:
			// 00E0 - Clear screen
			return Instruction{Op: OpClear, Opcode: opcode}

		case 0x00EE:
			// 00EE - Return from subroutine
			return Instruction{Op: OpReturn, Opcode: opcode}
		}

		// 0NNN - Machine code routine, ignored
		return Instruction{Op: OpNoOp, Opcode: opcode}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return addr(OpJump)

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return addr(OpCall)

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return regImm(OpSkipEqImm)

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return regImm(OpSkipNeImm)

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if opcode&0x000F == 0 {
			return regReg(OpSkipEqReg)
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return regImm(OpLoadImm)

	case 0x7000:
		// 7XNN - Adds NN to VX, no carry
		return regImm(OpAddImm)

	case 0x8000:
		// 8XY_
		switch opcode & 0x000F {
		case 0x0000:
			// 8XY0 - Sets VX to the value of VY
			return regReg(OpAssign)

		case 0x0001:
			// 8XY1 - Sets VX to (VX OR VY)
			return regReg(OpOr)

		case 0x0002:
			// 8XY2 - Sets VX to (VX AND VY)
			return regReg(OpAnd)

		case 0x0003:
			// 8XY3 - Sets VX to (VX XOR VY)
			return regReg(OpXor)

		case 0x0004:
			// 8XY4 - Adds VY to VX. VF is 1 on overflow, 0 otherwise.
			return regReg(OpAdd)

		case 0x0005:
			// 8XY5 - VY is subtracted from VX. VF is 0 on borrow, 1 otherwise.
			return regReg(OpSub)

		case 0x0006:
			// 8XY6 - Shifts VX right by one. VF gets the bit shifted out.
			return reg(OpShiftRight)

		case 0x0007:
			// 8XY7 - Sets VX to VY minus VX. VF is 0 on borrow, 1 otherwise.
			return regReg(OpSubReversed)

		case 0x000E:
			// 8XYE - Shifts VX left by one. VF gets the bit shifted out.
			return reg(OpShiftLeft)
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if opcode&0x000F == 0 {
			return regReg(OpSkipNeReg)
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return addr(OpSetIndex)

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return addr(OpJumpOffset)

	case 0xC000:
		// CXNN - Sets VX to a random number, masked by NN
		return regImm(OpRandom)

	case 0xD000:
		// DXYN - Draws an 8xN sprite from I at (VX, VY)
		return Instruction{Op: OpDraw, X: x, Y: y, NN: uint8(opcode & 0x000F), Opcode: opcode}

	case 0xE000:
		switch opcode & 0x00FF {
		case 0x009E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return reg(OpSkipKey)

		case 0x00A1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return reg(OpSkipNoKey)
		}

	case 0xF000:
		switch opcode & 0x00FF {
		case 0x0007:
			// FX07 - Sets VX to the value of the delay timer
			return reg(OpGetDelay)

		case 0x000A:
			// FX0A - A key press is awaited, and then stored in VX
			return reg(OpAwaitKey)

		case 0x0015:
			// FX15 - Sets the delay timer to VX
			return reg(OpSetDelay)

		case 0x0017:
			// FX17 - Legacy, ignored
			return Instruction{Op: OpNoOp, Opcode: opcode}

		case 0x0018:
			// FX18 - Sets the sound timer to VX
			return reg(OpSetSound)

		case 0x001E:
			// FX1E - Adds VX to I
			return reg(OpAddIndex)

		case 0x0029:
			// FX29 - Sets I to the glyph for the hex digit in VX
			return reg(OpGlyph)

		case 0x0033:
			// FX33 - Stores the decimal digits of VX at I, I+1, I+2
			return reg(OpDecimal)

		case 0x0055:
			// FX55 - Stores V0 to VX in memory starting at address I
			return reg(OpStoreRegs)

		case 0x0065:
			// FX65 - Reads memory starting at address I into V0...VX
			return reg(OpLoadRegs)
		}

		if opcode == 0xF000 {
			return Instruction{Op: OpHalt, Opcode: opcode}
		}
	}

	return Instruction{Op: OpUnsupported, Opcode: opcode}
}
