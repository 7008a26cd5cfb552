// main.go - CLI entry point.
//
// Flag parsing uses a flag.FlagSet with ContinueOnError and a hand-written
// Usage, rather than a third-party CLI library.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// Exit codes: 0 success, non-zero on a fatal data error detected at load or
// during a render.
const (
	exitOK            = 0
	exitBadArgs       = 1
	exitROMError      = 2
	exitRuntimeError  = 3
)

func main() {
	var (
		romPath      string
		romHash      string
		outputMode   string
		wavPath      string
		wavSeconds   float64
		tickHz       int
		sampleRate   int
		showStatus   bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&romPath, "rom", "", "path to a 48KiB sound ROM image")
	flagSet.StringVar(&romHash, "rom-hash", "", "expected sha256 hex digest of the ROM (optional)")
	flagSet.StringVar(&outputMode, "output", "live", "output mode: live, wav, or trace")
	flagSet.StringVar(&wavPath, "wav-out", "out.wav", "WAV file path when -output=wav")
	flagSet.Float64Var(&wavSeconds, "seconds", 5.0, "seconds to render when -output=wav")
	flagSet.IntVar(&tickHz, "tick-hz", 245, "host tick rate driving the engine")
	flagSet.IntVar(&sampleRate, "sample-rate", SAMPLE_RATE, "output sample rate")
	flagSet.BoolVar(&showStatus, "status", false, "print a status line once per second in live mode")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: sound-coprocessor -rom <path> [-output live|wav|trace] [flags]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(exitOK)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(exitBadArgs)
	}

	if romPath == "" {
		fmt.Println("Error: -rom is required")
		flagSet.Usage()
		os.Exit(exitBadArgs)
	}

	data, err := os.ReadFile(romPath)
	if err != nil {
		fmt.Printf("Error reading ROM: %v\n", err)
		os.Exit(exitROMError)
	}

	engine, err := NewEngine(data, romHash, BackendOto)
	if err != nil {
		fmt.Printf("Error loading ROM: %v\n", err)
		os.Exit(exitROMError)
	}

	switch outputMode {
	case "wav":
		runWAVExport(engine, wavPath, wavSeconds, tickHz, sampleRate)
	case "trace":
		runTrace(engine, tickHz)
	case "live":
		runLive(engine, tickHz, showStatus)
	default:
		fmt.Printf("Error: unknown -output mode %q\n", outputMode)
		os.Exit(exitBadArgs)
	}
}

func runWAVExport(engine *Engine, path string, seconds float64, tickHz, sampleRate int) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("Error creating %s: %v\n", path, err)
		os.Exit(exitRuntimeError)
	}
	defer f.Close()

	if err := engine.RenderWAV(f, seconds, tickHz, sampleRate); err != nil {
		fmt.Printf("Error rendering WAV: %v\n", err)
		os.Exit(exitRuntimeError)
	}
	if flags := engine.ErrorFlags(); flags != 0 {
		fmt.Printf("Completed with recoverable errors: %s\n", flags)
	}
}

// runTrace drives the engine forever, printing each egress byte as it is
// produced - a register-write trace suitable for piping into another tool
// rather than a speaker.
func runTrace(engine *Engine, tickHz int) {
	interval := time.Second / time.Duration(tickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := engine.Tick(); err != nil {
			fmt.Fprintf(os.Stderr, "tick error: %v\n", err)
		}
		for {
			b, ok := engine.PopOutput()
			if !ok {
				break
			}
			fmt.Printf("%02x\n", b)
		}
	}
}

func runLive(engine *Engine, tickHz int, showStatus bool) {
	engine.Start()
	defer engine.Stop()

	interval := time.Second / time.Duration(tickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	styles := newStatusStyles()
	statusEvery := tickHz // roughly once a second
	tick := 0

	for range ticker.C {
		if err := engine.Tick(); err != nil {
			fmt.Fprintf(os.Stderr, "tick error: %v\n", err)
		}
		tick++
		if showStatus && tick%statusEvery == 0 {
			fmt.Println(engine.StatusLine(styles))
		}
	}
}
