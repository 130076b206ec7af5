package main

import (
	"flag"
	"fmt"
	"os"

	"bcvm/internal/config"
	"bcvm/internal/logger"
	"bcvm/internal/runner"
	"bcvm/pkg/color"

	"github.com/charmbracelet/log"
)

// Main entry point for the bcvm interpreter.
func main() {
	options := runner.Runner{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Disassemble, "d", false, "Disassemble instead of running")
	flag.BoolVar(&options.Trace, "t", false, "Trace every executed instruction")
	flag.StringVar(&options.ConvertTo, "convert", "", "Convert the program to this file (.dis, .yaml, .yml or .cbor)")
	flag.StringVar(&options.ConfigFile, "config", "", "Configuration file (default "+config.FileName+" if present)")
	flag.IntVar(&options.MaxSteps, "steps", -1, "Maximum executed instructions, 0 for unlimited (overrides config)")
	flag.IntVar(&options.MaxDepth, "depth", 0, "Maximum call depth (overrides config)")

	flag.Parse()
	args := flag.Args()

	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		logger.Init(options.Verbose, options.NoColor)
		log.Fatal("Invalid configuration", "error", err)
	}
	verbose := options.Verbose || cfg.Output.Verbose
	noColor := options.NoColor || !cfg.Output.Color
	options.Verbose = verbose

	logger.Init(verbose || options.Trace || cfg.Output.Trace, noColor)
	if options.Help {
		fmt.Printf("Usage: %s [options] <file>\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	if noColor {
		color.EnableColor(false)
	}

	if len(args) == 0 {
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	options.SourceFile = args[0]
	options.Logger = log.Default()

	if err := options.Run(cfg); err != nil {
		log.Fatal("Run failed", "error", err)
	}
}
