package main

import (
	"fmt"
	"io"

	"github.com/finiteint/chip8/internal/loader"
	"github.com/finiteint/chip8/internal/vm"
	"github.com/spf13/cobra"
)

func newDisasmCommand(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PROGRAM",
		Short: "Print the instructions of a CHIP-8 program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, f, err := readProgram(args[0], *format)
			if err != nil {
				return err
			}

			segments, err := loader.Load(vm.NewMemory(), program, f)
			if err != nil {
				return fmt.Errorf("unable to load program: %w", err)
			}

			disassemble(cmd.OutOrStdout(), segments)
			return nil
		},
	}
}

// disassemble prints one line per instruction word: address, opcode and
// mnemonic. A trailing odd byte is printed as data.
func disassemble(w io.Writer, segments []loader.Segment) {
	for _, seg := range segments {
		data := seg.Data
		addr := int(seg.Addr)

		for ; len(data) >= vm.InstructionSize; data = data[vm.InstructionSize:] {
			opcode := uint16(data[0])<<8 | uint16(data[1])
			fmt.Fprintf(w, "%03X  %04X  %s\n", addr, opcode, vm.Decode(opcode))
			addr += vm.InstructionSize
		}

		if len(data) == 1 {
			fmt.Fprintf(w, "%03X  %02X    db 0x%02x\n", addr, data[0], data[0])
		}
	}
}
