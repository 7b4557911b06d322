// Command sinter-compiler compiles a Sinter source file to the
// textual IR consumed by the backend toolchain.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/compiler"
	"github.com/mavrukin/sinter-lang/internal/project"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		output      = flag.String("o", "", "write emitted IR to this path (default: <input>.ir)")
		emitIR      = flag.Bool("emit-ir", false, "print the IR module to stdout")
		dumpAST     = flag.Bool("ast", false, "print the parsed AST outline and stop")
		dumpTokens  = flag.Bool("tokens", false, "print the token stream and stop")
		verbose     = flag.Bool("verbose", false, "report per-stage progress to stderr")
		watch       = flag.Bool("watch", false, "recompile whenever the input file changes")
		projectPath = flag.String("project", "", "load build settings from this sinter.json")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sinter-compiler v%s\n", project.ToolchainVersion)
		return
	}

	opts := options{
		output:     *output,
		emitIR:     *emitIR,
		dumpAST:    *dumpAST,
		dumpTokens: *dumpTokens,
		verbose:    *verbose,
	}

	input := ""
	if *projectPath != "" {
		m, err := project.Load(*projectPath)
		if err != nil {
			fail("%v", err)
		}
		input = m.EntryPath()
		if opts.output == "" {
			opts.output = m.OutputPath()
		}
		opts.emitIR = opts.emitIR || m.EmitIR
	}
	if args := flag.Args(); len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		fmt.Fprintln(os.Stderr, "usage: sinter-compiler [options] <file.sn>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if opts.output == "" {
		opts.output = defaultOutput(input)
	}

	if *watch {
		if err := watchLoop(input, opts); err != nil {
			fail("%v", err)
		}
		return
	}
	os.Exit(runOnce(input, opts))
}

type options struct {
	output     string
	emitIR     bool
	dumpAST    bool
	dumpTokens bool
	verbose    bool
}

// runOnce compiles one file and returns the process exit code: 0 for
// a diagnostic-free unit, 1 when any error was reported.
func runOnce(input string, opts options) int {
	start := time.Now()
	a, err := compiler.CompileFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sinter-compiler: %v\n", err)
		return 1
	}

	if opts.dumpTokens {
		for _, tok := range a.Tokens {
			fmt.Println(tok)
		}
		return exitCode(a)
	}
	if opts.dumpAST {
		if a.Program != nil {
			fmt.Print(ast.Dump(a.Program))
		}
		return exitCode(a)
	}

	if a.Bag.Len() > 0 {
		fmt.Fprint(os.Stderr, a.Bag.Report(nil))
	}
	if !a.OK() {
		return 1
	}

	if opts.emitIR {
		fmt.Print(a.Module.String())
	}
	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(a.Module.String()), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "sinter-compiler: %v\n", err)
			return 1
		}
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "compiled %s in %s (%d diagnostics)\n",
			input, time.Since(start).Round(time.Millisecond), a.Bag.Len())
	}
	return 0
}

func exitCode(a *compiler.Artifacts) int {
	if a.OK() {
		return 0
	}
	return 1
}

// watchLoop recompiles on every write to the input file. Editors
// often replace the file on save, so the watch is registered on the
// directory and filtered by name.
func watchLoop(input string, opts options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(input)
	if err := w.Add(dir); err != nil {
		return err
	}

	runOnce(input, opts)
	fmt.Fprintf(os.Stderr, "watching %s\n", input)

	target := filepath.Clean(input)
	var last time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !shouldRebuild(ev, target) {
				continue
			}
			// Coalesce the event bursts editors produce on save.
			if time.Since(last) < 100*time.Millisecond {
				continue
			}
			last = time.Now()
			fmt.Fprintf(os.Stderr, "--- recompiling %s\n", input)
			runOnce(input, opts)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}

// shouldRebuild reports whether a watcher event is a save of the
// watched file. Editors replace files on save, so Create and Rename
// count alongside Write.
func shouldRebuild(ev fsnotify.Event, target string) bool {
	if filepath.Clean(ev.Name) != target {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// defaultOutput derives the IR output path from the input path.
func defaultOutput(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".ir"
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "sinter-compiler: "+format+"\n", args...)
	os.Exit(1)
}
