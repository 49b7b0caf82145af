package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `wick - compiles a small scripting language to WebAssembly

Usage:
    wick <command> [arguments]

Commands:
    run <file>      Compile and execute a source file
    build <file>    Compile a source file to a .wasm module
    eval <code>     Compile and execute inline source text
    check <file>    Lex and parse a source file without compiling
    help            Show this help message

Examples:
    wick run examples/fact.wick
    wick build -o program.wasm hello.wick
    wick eval 'println "hello world"'
    wick check myfile.wick

Use "wick <command> -h" for more information about a command.
`)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wick run [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile and execute a source file\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	wasmBytes := compileOrDie(string(source), *verbose)

	tempWasm := "temp_" + strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ".wasm"
	if err := os.WriteFile(tempWasm, wasmBytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WASM file: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(tempWasm)

	if *verbose {
		fmt.Printf("Generated %d bytes of WASM\nExecuting...\n", len(wasmBytes))
	}
	if err := executeWasmFile(tempWasm); err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.wasm)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wick build [-o output] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a source file to a .wasm module\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".wasm"
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Compiling %s to %s...\n", filename, outputFile)
	}
	wasmBytes := compileOrDie(string(source), *verbose)

	if err := os.WriteFile(outputFile, wasmBytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WASM file %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(wasmBytes))
}

func evalCommand(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wick eval [-v] <code>\n")
		fmt.Fprintf(os.Stderr, "Compile and execute inline source text\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one code argument\n")
		fs.Usage()
		os.Exit(1)
	}

	code := fs.Arg(0)
	wasmBytes := compileOrDie(code, *verbose)

	tempWasm := "temp_eval.wasm"
	if err := os.WriteFile(tempWasm, wasmBytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WASM file: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(tempWasm)

	if *verbose {
		fmt.Printf("Generated %d bytes of WASM\n", len(wasmBytes))
	}
	if err := executeWasmFile(tempWasm); err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wick check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Lex and parse a source file without compiling\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	buf := append(source, 0)
	prog, errs := ParseProgram(buf)
	if errs.HasErrors() {
		fmt.Printf("Parsing errors in %s:\n%s\n", filename, errs.String())
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)
	if *verbose {
		fmt.Printf("%d top-level statements\n", len(prog.Body))
	}
}

// compileOrDie runs the full pipeline and exits the process with the
// diagnostic printed to stderr on failure — the shape every subcommand
// above shares.
func compileOrDie(source string, verbose bool) []byte {
	wasmBytes, _, err := Compile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}
	return wasmBytes
}

// executeWasmFile shells out to an external WebAssembly runtime that
// supplies the `env.print`/`env.println` imports and invokes `main`. The
// runtime binary is not bundled with this project (spec.md §1 treats the
// host-side driver as an external collaborator); its path is resolved from
// WICK_RUNTIME, falling back to a `wasmruntime` binary on PATH. If neither
// is available, run/eval report that instead of failing silently.
func executeWasmFile(wasmFile string) error {
	runtimeBinary := os.Getenv("WICK_RUNTIME")
	if runtimeBinary == "" {
		runtimeBinary = "wasmruntime"
	}
	if _, err := exec.LookPath(runtimeBinary); err != nil {
		return fmt.Errorf("no WebAssembly runtime found (set WICK_RUNTIME or put a `wasmruntime` binary on PATH): %w", err)
	}

	cmd := exec.Command(runtimeBinary, wasmFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runCommand(args)
	case "build":
		buildCommand(args)
	case "eval":
		evalCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
