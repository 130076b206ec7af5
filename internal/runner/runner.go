package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bcvm/internal/config"
	"bcvm/pkg/bytecode"
	"bcvm/pkg/color"
	"bcvm/pkg/interpreter"
	"bcvm/pkg/parser"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

type Runner struct {
	Help        bool   // Show help message
	Verbose     bool   // Print the listing before running
	NoColor     bool   // Disable colored output
	Disassemble bool   // Print the listing instead of running
	Trace       bool   // Log every executed instruction
	ConvertTo   string // Write the program to this file instead of running it
	ConfigFile  string // Path to bcvm.toml; empty means the working directory
	MaxSteps    int    // Step limit; negative means the configured value
	MaxDepth    int    // Call depth limit; zero means the configured value
	SourceFile  string // Path to the program (.dis, .yaml, .yml or .cbor)

	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
}

// Run loads the program and disassembles, converts or executes it as the
// options say.
func (r *Runner) Run(cfg *config.Config) error {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	r.Logger.Info("Processing file", "file", r.SourceFile)
	code, err := Load(r.SourceFile)
	if err != nil {
		return err
	}

	if r.Verbose || r.Disassemble {
		if r.Verbose {
			fmt.Fprintln(r.Stdout, color.GreenText("=== Disassembly ==="))
		}
		if err := bytecode.Disassemble(r.Stdout, code, highlight); err != nil {
			return errors.Wrap(err, "disassembly failed")
		}
		if r.Disassemble {
			return nil
		}
	}

	if r.ConvertTo != "" {
		return Save(r.ConvertTo, code)
	}

	vm := interpreter.New(r.options(cfg)...)
	if r.Verbose {
		fmt.Fprintln(r.Stdout, color.GreenText("\n=== Program Output ==="))
	}
	if _, err := vm.Run(code); err != nil {
		fmt.Fprintln(r.Stderr, Report(err))
		return errors.Wrap(err, "execution failed")
	}
	r.Logger.Debug("Program finished", "steps", vm.Steps())
	return nil
}

// options merges the configuration with command-line overrides.
func (r *Runner) options(cfg *config.Config) []interpreter.Option {
	steps, depth := cfg.VM.MaxSteps, cfg.VM.MaxCallDepth
	if r.MaxSteps >= 0 {
		steps = r.MaxSteps
	}
	if r.MaxDepth > 0 {
		depth = r.MaxDepth
	}
	return []interpreter.Option{
		interpreter.WithWriter(r.Stdout),
		interpreter.WithLogger(r.Logger),
		interpreter.WithTrace(r.Trace || cfg.Output.Trace),
		interpreter.WithMaxSteps(steps),
		interpreter.WithMaxCallDepth(depth),
		interpreter.WithJumpTable(cfg.VM.JumpTable),
		interpreter.WithChainCause(cfg.VM.ChainCause),
	}
}

// Load reads a program, choosing the decoder from the file extension.
func Load(path string) (*bytecode.Code, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "dis" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read file")
		}
		code, err := parser.Assemble(string(src))
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		return code, nil
	}

	format, err := bytecode.ParseFormat(ext)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer f.Close()

	code, err := bytecode.Decode(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return code, nil
}

// Save writes a program in the format its extension names.
func Save(path string, code *bytecode.Code) (err error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	var write func(io.Writer) error
	if ext == "dis" {
		write = func(w io.Writer) error { return bytecode.Disassemble(w, code, nil) }
	} else {
		format, err := bytecode.ParseFormat(ext)
		if err != nil {
			return errors.Wrapf(err, "%s", path)
		}
		write = func(w io.Writer) error { return bytecode.Encode(w, code, format) }
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create output")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "failed to close output")
		}
	}()
	return write(f)
}

// Report renders a run failure. Raised exceptions are printed with their
// cause chain, the cause first.
func Report(err error) string {
	var raised *interpreter.RaisedError
	if !errors.As(err, &raised) {
		return color.Error(err.Error())
	}

	var chain []string
	for e := raised; e != nil; e = e.Cause() {
		chain = append(chain, color.BrightRedText(e.Error()))
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		b.WriteString(chain[i])
		if i > 0 {
			b.WriteString("\n\nThe above exception was the direct cause of the following exception:\n\n")
		}
	}
	return b.String()
}

func highlight(part bytecode.Part, text string) string {
	switch part {
	case bytecode.PartKeyword:
		return color.MagentaText(text)
	case bytecode.PartName:
		return color.CyanText(text)
	case bytecode.PartOffset:
		return color.GrayText(text)
	case bytecode.PartOpcode:
		return color.YellowText(text)
	default:
		return color.BlueText(text)
	}
}
