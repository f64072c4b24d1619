package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/finiteint/chip8/internal/hal"
	"github.com/finiteint/chip8/internal/loader"
	"github.com/finiteint/chip8/internal/tty"
	"github.com/finiteint/chip8/internal/vm"
	"github.com/spf13/cobra"
)

const (
	frontendSDL  = "sdl"
	frontendTTY  = "tty"
	frontendNone = "none"
)

func init() {
	// SDL calls must stay on the main thread
	runtime.LockOSThread()
}

type runOptions struct {
	format   string
	frontend string
	clock    time.Duration
	trace    bool
	dump     bool
}

func main() {
	cmd := newRootCommand()
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PROGRAM", filepath.Base(os.Args[0])),
		Short:         "Run a CHIP-8 program",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", string(loader.FormatAuto), "program format: auto, rom or hex")

	cmd.Flags().StringVar(&opts.frontend, "frontend", frontendSDL, "frontend: sdl, tty or none")
	cmd.Flags().DurationVar(&opts.clock, "clock", 1200*time.Microsecond, "delay between instructions, 0 runs unthrottled")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "log every executed instruction (with --verbose)")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "print registers and memory when the program ends")

	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
	}

	cmd.AddCommand(newDisasmCommand(&opts.format))
	return cmd
}

// readProgram loads the file at path and resolves the "auto" format.
func readProgram(path, format string) ([]byte, loader.Format, error) {
	f, err := loader.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	if f == loader.FormatAuto {
		f = loader.DetectFormat(path)
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("unable to load file %q: %w", path, err)
	}

	return bs, f, nil
}

func run(ctx context.Context, out io.Writer, path string, opts runOptions) error {
	program, format, err := readProgram(path, opts.format)
	if err != nil {
		return err
	}

	vmOpts := []vm.Option{
		vm.WithTrace(opts.trace),
		vm.WithClock(opts.clock),
	}

	switch opts.frontend {
	case frontendSDL:
		h, err := hal.New()
		if err != nil {
			return fmt.Errorf("unable to initialize hal: %w", err)
		}
		defer h.Shutdown()

		machine, err := newMachine(h, h, program, format, vmOpts)
		if err != nil {
			return err
		}

		err = h.Loop(machine.Keyboard(), start(ctx, machine))
		if errors.Is(err, hal.ErrQuit) {
			return nil
		}
		report(out, machine, opts.dump)
		if err != nil {
			return err
		}

		slog.Info("program halted, close the window to exit")
		return h.WaitForQuit()

	case frontendTTY:
		t, err := tty.Open()
		if err != nil {
			return err
		}

		machine, err := newMachine(t, t, program, format, vmOpts)
		if err != nil {
			_ = t.Close()
			return err
		}

		err = t.Loop(machine.Keyboard(), start(ctx, machine))
		if cerr := t.Close(); cerr != nil {
			slog.Error("failed to close terminal", "err", cerr)
		}
		if errors.Is(err, tty.ErrQuit) {
			return nil
		}
		report(out, machine, opts.dump)
		return err

	case frontendNone:
		machine, err := newMachine(nil, nil, program, format, vmOpts)
		if err != nil {
			return err
		}

		err = machine.Run(ctx)
		if opts.dump {
			fmt.Fprint(out, tty.Render(machine.Display().Frame(), "\n"))
		}
		report(out, machine, opts.dump)
		return err

	default:
		return fmt.Errorf("unknown frontend %q", opts.frontend)
	}
}

func newMachine(renderer vm.Renderer, beeper vm.Beeper, program []byte, format loader.Format, opts []vm.Option) (*vm.Machine, error) {
	machine, err := vm.NewMachine(renderer, beeper, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize machine: %w", err)
	}

	segments, err := loader.Load(machine.Memory(), program, format)
	if err != nil {
		return nil, fmt.Errorf("unable to load program: %w", err)
	}
	slog.Info("load program", "format", format, "segments", len(segments))

	return machine, nil
}

// start runs the machine on its own goroutine, leaving the calling
// (main) thread to the frontend.
func start(ctx context.Context, machine *vm.Machine) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- machine.Run(ctx)
	}()
	return done
}

func report(out io.Writer, machine *vm.Machine, dump bool) {
	if !dump {
		return
	}
	machine.Processor().Dump(out)
	machine.Memory().Dump(out)
}
