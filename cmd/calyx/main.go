// Command calyx is the compiler driver: it resolves a pass pipeline, runs
// it over an input component, and dispatches to one of the verilog,
// pretty-print, xilinx, or interpreter backends, grounded on api/driver.go's
// Driver interface and the flag-parsing, stage-banner style of
// verify/cmd/verify-*/main.go.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/calyx-lang/calyxgo/backend/verilog"
	"github.com/calyx-lang/calyxgo/config"
	"github.com/calyx-lang/calyxgo/debugger"
	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/interp"
	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/printer"
)

// repeatedFlag collects every occurrence of a flag given more than once
// (-p name, -d name, -x pass:opt=val, -l libdir), the way the standard
// flag package's Var hook is meant to be used for multi-valued flags.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("calyx", flag.ContinueOnError)

	backend := fs.String("b", "verilog", "output backend: verilog, calyx, xilinx, interpreter")
	var addPasses, disablePasses, passOpts, libDirs repeatedFlag
	fs.Var(&addPasses, "p", "add a pass to the pipeline (repeatable)")
	fs.Var(&disablePasses, "d", "disable a pass from the pipeline (repeatable)")
	fs.Var(&passOpts, "x", "set a pass option as pass:opt=val (repeatable)")
	fs.Var(&libDirs, "l", "extern primitive library search directory (repeatable)")
	output := fs.String("o", "", "output file (default: stdout)")
	memDataFile := fs.String("m", "", "memory initialization JSON file")
	memDumpFile := fs.String("w", "", "memory dump JSON file, written on exit")
	memWords := fs.Uint64("mem-words", 1024, "words per external memory cell when dumping with -w")
	httpAddr := fs.String("http", "", "serve a read-only debug status endpoint at this address (interpreter backend only)")
	verbose := fs.Bool("v", false, "enable debug-level logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	input := "adder"
	if fs.NArg() > 0 {
		input = fs.Arg(0)
	}

	component, err := fixtureByName(input)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	cfgBuilder := config.NewBuilder().WithBackend(*backend).WithLogger(logger)
	if len(addPasses) > 0 {
		cfgBuilder = cfgBuilder.WithPasses(append(config.DefaultPassPipeline(), addPasses...)...)
	}
	if len(disablePasses) > 0 {
		cfgBuilder = cfgBuilder.WithDisabledPasses(disablePasses...)
	}
	for _, spec := range passOpts {
		pass, kv, ok := splitPassOption(spec)
		if !ok {
			logger.Error(fmt.Sprintf("calyx: malformed -x option %q, want pass:opt=val", spec))
			return 1
		}
		cfgBuilder = cfgBuilder.WithPassOption(pass, kv[0], kv[1])
	}
	for _, dir := range libDirs {
		cfgBuilder = cfgBuilder.WithLibDir(dir)
	}
	cfgBuilder = cfgBuilder.WithOutputFile(*output).WithMemDataFile(*memDataFile).WithMemDumpFile(*memDumpFile)
	cfg := cfgBuilder.Build()

	pipeline, err := config.BuildPipeline(cfg)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	if err := pipeline.Run(component); err != nil {
		logger.Error(fmt.Sprintf("calyx: pass pipeline: %v", err))
		return 1
	}

	switch cfg.Backend {
	case "verilog", "xilinx":
		return runVerilogBackend(logger, component, cfg)
	case "calyx":
		return writeOutput(logger, cfg.OutputFile, printer.Print(component))
	case "interpreter":
		return runInterpreter(logger, component, cfg, *httpAddr, *memWords)
	default:
		logger.Error(fmt.Sprintf("calyx: unknown backend %q", cfg.Backend))
		return 1
	}
}

func splitPassOption(spec string) (pass string, kv [2]string, ok bool) {
	passAndRest := strings.SplitN(spec, ":", 2)
	if len(passAndRest) != 2 {
		return "", kv, false
	}
	optAndVal := strings.SplitN(passAndRest[1], "=", 2)
	if len(optAndVal) != 2 {
		return "", kv, false
	}
	return passAndRest[0], [2]string{optAndVal[0], optAndVal[1]}, true
}

func writeOutput(logger *slog.Logger, path, content string) int {
	if path == "" {
		fmt.Println(content)
		return 0
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Error(fmt.Sprintf("calyx: writing output: %v", err))
		return 1
	}
	return 0
}

func runInterpreter(logger *slog.Logger, component *ir.Component, cfg config.Config, httpAddr string, memWords uint64) int {
	prog := flatten.Flatten(component)
	atexit.Register(func() {
		logger.Info("calyx: interpreter session ended")
	})

	sess := debugger.NewSession(component, prog, interp.Config{
		AllowParConflicts: cfg.AllowParConflicts,
		Logger:            logger,
	}, os.Stdout)

	if cfg.MemDataFile != "" {
		doc, err := loadMemoryData(cfg.MemDataFile)
		if err != nil {
			logger.Error(err.Error())
			return 1
		}
		applyMemoryData(logger, component, prog, sess.Interp.State, doc)
	}
	if cfg.MemDumpFile != "" {
		atexit.Register(func() {
			if err := dumpMemoryData(component, prog, sess.Interp.State, cfg.MemDumpFile, memWords); err != nil {
				logger.Error(err.Error())
			}
		})
	}

	if httpAddr != "" {
		go func() {
			if err := serveStatus(logger, sess, httpAddr); err != nil {
				logger.Error(fmt.Sprintf("calyx: status server: %v", err))
			}
		}()
	}

	repl := debugger.NewREPL(sess, os.Stdin, os.Stdout)
	if err := repl.Run(); err != nil {
		logger.Error(fmt.Sprintf("calyx: debugger session: %v", err))
		return 1
	}
	atexit.Exit(0)
	return 0
}

func runVerilogBackend(logger *slog.Logger, component *ir.Component, cfg config.Config) int {
	opt := verilog.Options{FlatAssign: cfg.FlatAssign}
	text, diags := verilog.Emit(component, opt)
	for _, d := range diags {
		logger.Error(d.Msg)
	}
	if len(diags) > 0 {
		return 1
	}
	if cfg.Backend == "xilinx" {
		text = "// xilinx target: synthesize with the Vivado-compatible subset below\n" + text
	}
	return writeOutput(logger, cfg.OutputFile, text)
}
