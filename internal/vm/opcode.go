package vm

// GlyphHeight is the number of bytes in each built-in hex digit sprite.
const GlyphHeight = 5

type handler func(p *Processor, instr Instruction) error

var handlers [opCount]handler

func init() {
	handlers = [opCount]handler{
		OpUnsupported: (*Processor).unsupported,
		OpNoOp:        (*Processor).noop,
		OpHalt:        (*Processor).halt,
		OpClear:       (*Processor).cls,
		OpReturn:      (*Processor).rts,
		OpJump:        (*Processor).jmp,
		OpCall:        (*Processor).jsr,
		OpSkipEqImm:   (*Processor).skeqImm,
		OpSkipNeImm:   (*Processor).skneImm,
		OpSkipEqReg:   (*Processor).skeqReg,
		OpSkipNeReg:   (*Processor).skneReg,
		OpLoadImm:     (*Processor).movImm,
		OpAddImm:      (*Processor).addImm,
		OpAssign:      (*Processor).movReg,
		OpOr:          (*Processor).or,
		OpAnd:         (*Processor).and,
		OpXor:         (*Processor).xor,
		OpAdd:         (*Processor).add,
		OpSub:         (*Processor).sub,
		OpShiftRight:  (*Processor).shr,
		OpSubReversed: (*Processor).rsb,
		OpShiftLeft:   (*Processor).shl,
		OpSetIndex:    (*Processor).mvi,
		OpJumpOffset:  (*Processor).jmi,
		OpRandom:      (*Processor).rnd,
		OpDraw:        (*Processor).sprite,
		OpSkipKey:     (*Processor).skpr,
		OpSkipNoKey:   (*Processor).skup,
		OpGetDelay:    (*Processor).gdelay,
		OpAwaitKey:    (*Processor).key,
		OpSetDelay:    (*Processor).sdelay,
		OpSetSound:    (*Processor).ssound,
		OpAddIndex:    (*Processor).adi,
		OpGlyph:       (*Processor).font,
		OpDecimal:     (*Processor).bcd,
		OpStoreRegs:   (*Processor).str,
		OpLoadRegs:    (*Processor).ldr,
	}
}

func (p *Processor) execute(instr Instruction) error {
	if instr.Op >= opCount {
		return p.unsupported(instr)
	}
	return handlers[instr.Op](p, instr)
}

func (p *Processor) unsupported(instr Instruction) error {
	return &IllegalInstructionError{Opcode: instr.Opcode}
}

func (p *Processor) noop(Instruction) error {
	return nil
}

func (p *Processor) halt(Instruction) error {
	return errHalt
}

// 00E0	cls	Clear the screen
func (p *Processor) cls(Instruction) error {
	p.display.Clear()
	return nil
}

// 00EE	rts	return from subroutine call
func (p *Processor) rts(Instruction) error {
	addr, err := p.pop()
	if err != nil {
		return err
	}
	p.pc = addr
	return nil
}

// 1xxx	jmp xxx	jump to address xxx
func (p *Processor) jmp(instr Instruction) error {
	p.pc = instr.NNN
	return nil
}

// 2xxx	jsr xxx	jump to subroutine at address xxx
func (p *Processor) jsr(instr Instruction) error {
	if err := p.push(p.pc); err != nil {
		return err
	}
	p.pc = instr.NNN
	return nil
}

// skipIf skips the next instruction; PC was already advanced past this one.
func (p *Processor) skipIf(cond bool) error {
	if !cond {
		return nil
	}
	return p.advance()
}

// 3rxx	skeq vr,xx	skip if register r = constant
func (p *Processor) skeqImm(instr Instruction) error {
	return p.skipIf(p.registers[instr.X] == instr.NN)
}

// 4rxx	skne vr,xx	skip if register r <> constant
func (p *Processor) skneImm(instr Instruction) error {
	return p.skipIf(p.registers[instr.X] != instr.NN)
}

// 5ry0	skeq vr,vy	skip if register r = register y
func (p *Processor) skeqReg(instr Instruction) error {
	return p.skipIf(p.registers[instr.X] == p.registers[instr.Y])
}

// 9ry0	skne vr,vy	skip if register r <> register y
func (p *Processor) skneReg(instr Instruction) error {
	return p.skipIf(p.registers[instr.X] != p.registers[instr.Y])
}

// 6rxx	mov vr,xx	move constant to register r
func (p *Processor) movImm(instr Instruction) error {
	p.registers[instr.X] = instr.NN
	return nil
}

// 7rxx	add vr,xx	add constant to register r	No carry generated
func (p *Processor) addImm(instr Instruction) error {
	p.registers[instr.X] += instr.NN
	return nil
}

// 8ry0	mov vr,vy	move register vy into vr
func (p *Processor) movReg(instr Instruction) error {
	p.registers[instr.X] = p.registers[instr.Y]
	return nil
}

// 8ry1	or rx,ry	or register vy into register vx
func (p *Processor) or(instr Instruction) error {
	p.registers[instr.X] |= p.registers[instr.Y]
	return nil
}

// 8ry2	and rx,ry	and register vy into register vx
func (p *Processor) and(instr Instruction) error {
	p.registers[instr.X] &= p.registers[instr.Y]
	return nil
}

// 8ry3	xor rx,ry	exclusive or register ry into register rx
func (p *Processor) xor(instr Instruction) error {
	p.registers[instr.X] ^= p.registers[instr.Y]
	return nil
}

// 8ry4	add vr,vy	add register vy to vr, carry in vf
func (p *Processor) add(instr Instruction) error {
	x := p.registers[instr.X]
	y := p.registers[instr.Y]
	sum := uint16(x) + uint16(y)

	p.registers[instr.X] = uint8(sum)
	p.setFlag(uint8(sum >> 8))
	return nil
}

// 8ry5	sub vr,vy	subtract register vy from vr, vf is 0 on borrow
func (p *Processor) sub(instr Instruction) error {
	x := p.registers[instr.X]
	y := p.registers[instr.Y]

	p.registers[instr.X] = x - y
	p.setFlag(noBorrow(x, y))
	return nil
}

// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr, vf is 0 on borrow
func (p *Processor) rsb(instr Instruction) error {
	x := p.registers[instr.X]
	y := p.registers[instr.Y]

	p.registers[instr.X] = y - x
	p.setFlag(noBorrow(y, x))
	return nil
}

func noBorrow(a, b uint8) uint8 {
	if b > a {
		return 0
	}
	return 1
}

// 8r06	shr vr	shift register vr right, bit 0 goes into register vf
func (p *Processor) shr(instr Instruction) error {
	x := p.registers[instr.X]

	p.registers[instr.X] = x >> 1
	p.setFlag(x & 0x01)
	return nil
}

// 8r0e	shl vr	shift register vr left, bit 7 goes into register vf
func (p *Processor) shl(instr Instruction) error {
	x := p.registers[instr.X]

	p.registers[instr.X] = x << 1
	p.setFlag(x >> 7)
	return nil
}

// axxx	mvi xxx	Load index register with constant xxx
func (p *Processor) mvi(instr Instruction) error {
	p.index = instr.NNN
	return nil
}

// bxxx	jmi xxx	Jump to address xxx+register v0
func (p *Processor) jmi(instr Instruction) error {
	pc, err := addrAdd(uint16(p.registers[0]), instr.NNN)
	if err != nil {
		return err
	}
	p.pc = pc
	return nil
}

// crxx	rand vr,xx	vr = random byte masked by xx
func (p *Processor) rnd(instr Instruction) error {
	p.registers[instr.X] = uint8(p.rand.Uint32()) & instr.NN
	return nil
}

// dxyn	sprite rx,ry,n	Draw sprite from I at screen location rx,ry height n
// vf is set to 1 when any pixel changed state, otherwise it is zero.
func (p *Processor) sprite(instr Instruction) error {
	x := p.registers[instr.X]
	y := p.registers[instr.Y]

	collision, err := p.display.Draw(x, y, instr.NN, p.index, p.mem)
	if err != nil {
		return memoryError(err)
	}

	if collision {
		p.setFlag(1)
	} else {
		p.setFlag(0)
	}
	return nil
}

func (p *Processor) keyHeld(instr Instruction) bool {
	key, ok := p.keys.Pressed()
	return ok && key == Key(p.registers[instr.X])
}

// ek9e	skpr k	skip if key (register rk) pressed
func (p *Processor) skpr(instr Instruction) error {
	return p.skipIf(p.keyHeld(instr))
}

// eka1	skup k	skip if key (register rk) not pressed
func (p *Processor) skup(instr Instruction) error {
	return p.skipIf(!p.keyHeld(instr))
}

// fr07	gdelay vr	get delay timer into vr
func (p *Processor) gdelay(instr Instruction) error {
	p.registers[instr.X] = p.delay.Get()
	return nil
}

// fr0a	key vr	wait for keypress, put key in register vr
func (p *Processor) key(instr Instruction) error {
	p.registers[instr.X] = uint8(p.keys.AwaitPress())
	return nil
}

// fr15	sdelay vr	set the delay timer to vr
func (p *Processor) sdelay(instr Instruction) error {
	p.delay.Set(p.registers[instr.X])
	return nil
}

// fr18	ssound vr	set the sound timer to vr
func (p *Processor) ssound(instr Instruction) error {
	p.sound.Set(p.registers[instr.X])
	return nil
}

// fr1e	adi vr	add register vr to the index register
func (p *Processor) adi(instr Instruction) error {
	p.index += uint16(p.registers[instr.X])
	return nil
}

// fr29	font vr	point I to the sprite for hexadecimal character in vr
func (p *Processor) font(instr Instruction) error {
	p.index = FontBase + uint16(p.registers[instr.X])*GlyphHeight
	return nil
}

// fr33	bcd vr	store the decimal digits of vr at I, I+1, I+2, hundreds first
func (p *Processor) bcd(instr Instruction) error {
	x := p.registers[instr.X]
	digits := [3]uint8{x / 100, (x / 10) % 10, x % 10}

	for i, d := range digits {
		addr, err := addrAdd(p.index, uint16(i))
		if err != nil {
			return err
		}
		if err := p.mem.Store(addr, d); err != nil {
			return memoryError(err)
		}
	}
	return nil
}

// fr55	str v0-vr	store registers v0-vr at location I onwards; I is unchanged
func (p *Processor) str(instr Instruction) error {
	for i := uint16(0); i <= uint16(instr.X); i++ {
		addr, err := addrAdd(p.index, i)
		if err != nil {
			return err
		}
		if err := p.mem.Store(addr, p.registers[i]); err != nil {
			return memoryError(err)
		}
	}
	return nil
}

// fr65	ldr v0-vr	load registers v0-vr from location I onwards; I is unchanged
func (p *Processor) ldr(instr Instruction) error {
	for i := uint16(0); i <= uint16(instr.X); i++ {
		addr, err := addrAdd(p.index, i)
		if err != nil {
			return err
		}
		v, err := p.mem.Load(addr)
		if err != nil {
			return memoryError(err)
		}
		p.registers[i] = v
	}
	return nil
}
