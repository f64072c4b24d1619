package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

var (
	ErrStackOverflow   = errors.New("stack overflowed")
	ErrStackUnderflow  = errors.New("stack underflowed")
	ErrAddressOverflow = errors.New("memory address overflow")
	ErrMemoryAccess    = errors.New("memory access error")

	errHalt = errors.New("halted")
)

// IllegalInstructionError reports an opcode that does not decode to a
// supported instruction.
type IllegalInstructionError struct {
	Opcode uint16
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction 0x%04X", e.Opcode)
}

// Processor holds the register file and executes instructions fetched
// from memory.
type Processor struct {
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    int               // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	trace bool
	clock time.Duration
	rand  *rand.Rand

	// collaborators, attached for the duration of Run
	mem     *Memory
	delay   Timer
	display *Display
	keys    Keyboard
	sound   Timer
}

type Option func(p *Processor)

// WithTrace logs every executed instruction at debug level.
func WithTrace(enabled bool) Option {
	return func(p *Processor) {
		p.trace = enabled
	}
}

// WithClock sleeps d after every instruction.
func WithClock(d time.Duration) Option {
	return func(p *Processor) {
		p.clock = d
	}
}

// WithRand replaces the random source used by the random instruction.
func WithRand(r *rand.Rand) Option {
	return func(p *Processor) {
		p.rand = r
	}
}

func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) Register(idx int) uint8 {
	return p.registers[idx]
}

func (p *Processor) SetRegister(idx int, value uint8) {
	p.registers[idx] = value
}

func (p *Processor) PC() uint16 {
	return p.pc
}

func (p *Processor) SetPC(addr uint16) {
	p.pc = addr
}

func (p *Processor) Index() uint16 {
	return p.index
}

func (p *Processor) SetIndex(addr uint16) {
	p.index = addr
}

// StackDepth returns the number of return addresses currently saved.
func (p *Processor) StackDepth() int {
	return p.sp
}

// Run executes instructions until a halt instruction, which ends the run
// successfully, or until any other error, which is returned.
func (p *Processor) Run(mem *Memory, delay Timer, display *Display, keys Keyboard, sound Timer) error {
	p.mem, p.delay, p.display, p.keys, p.sound = mem, delay, display, keys, sound
	defer func() {
		p.mem, p.delay, p.display, p.keys, p.sound = nil, nil, nil, nil, nil
	}()

	for {
		err := p.step()
		if err != nil {
			if errors.Is(err, errHalt) {
				slog.Debug("cpu halted", "pc", fmt.Sprintf("0x%04x", p.pc))
				return nil
			}

			return err
		}

		if p.clock > 0 {
			time.Sleep(p.clock)
		}
	}
}

func (p *Processor) step() error {
	opcode, err := p.fetch()
	if err != nil {
		return err
	}

	instr := Decode(opcode)

	if p.trace && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", p.pc-InstructionSize),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	return p.execute(instr)
}

// fetch reads the opcode at PC and advances PC past it, so handlers see
// the address of the following instruction.
func (p *Processor) fetch() (uint16, error) {
	opcode, err := p.mem.LoadWord(p.pc)
	if err != nil {
		return 0, memoryError(err)
	}

	if err := p.advance(); err != nil {
		return 0, err
	}

	return opcode, nil
}

// advance moves PC past one instruction. PC may come to rest one past the
// last address, in which case the next fetch fails.
func (p *Processor) advance() error {
	next := uint32(p.pc) + InstructionSize
	if next > MemorySize {
		return fmt.Errorf("%w: 0x%04X+0x%04X", ErrAddressOverflow, p.pc, InstructionSize)
	}
	p.pc = uint16(next)
	return nil
}

func (p *Processor) push(addr uint16) error {
	if p.sp >= len(p.stack) {
		return ErrStackOverflow
	}

	p.stack[p.sp] = addr
	p.sp++
	return nil
}

func (p *Processor) pop() (uint16, error) {
	if p.sp <= 0 {
		return 0, ErrStackUnderflow
	}

	p.sp--
	return p.stack[p.sp], nil
}

func (p *Processor) setFlag(value uint8) {
	p.registers[FlagRegister] = value
}

// addrAdd adds an offset to an address, failing when the result leaves the
// address space.
func addrAdd(base, offset uint16) (uint16, error) {
	sum := uint32(base) + uint32(offset)
	if sum > uint32(MaxAddress) {
		return 0, fmt.Errorf("%w: 0x%04X+0x%04X", ErrAddressOverflow, base, offset)
	}
	return uint16(sum), nil
}

func memoryError(err error) error {
	return fmt.Errorf("%w: %w", ErrMemoryAccess, err)
}

// Dump writes a human readable view of PC, I, the registers and the stack.
func (p *Processor) Dump(w io.Writer) {
	fmt.Fprintf(w, "PC: %03X    I: %03X\n", p.pc, p.index)

	fmt.Fprintln(w, "Regs:")
	for i, v := range p.registers {
		fmt.Fprintf(w, "   %X: %02X (%3d)", i, v, v)
		if (i+1)%4 == 0 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "Stack:")
	for i, addr := range p.stack {
		mark := "  "
		if i == p.sp {
			mark = ">>"
		}
		fmt.Fprintf(w, " %s%X: %03X", mark, i, addr)
		if (i+1)%8 == 0 {
			fmt.Fprintln(w)
		}
	}
}

func (p *Processor) String() string {
	var sb strings.Builder
	p.Dump(&sb)
	return sb.String()
}
