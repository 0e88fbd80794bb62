package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/noasync"
	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/rewrite"
	"github.com/wippyai/noasync/runtime"
)

type argList []string

func (a *argList) String() string     { return strings.Join(*a, ",") }
func (a *argList) Set(s string) error { *a = append(*a, s); return nil }

func main() {
	var (
		args        argList
		file        = flag.String("file", "", "Path to the .nas script")
		funcNames   = flag.String("func", "", "Function or Class.method to call; comma-separated calls run concurrently")
		list        = flag.Bool("list", false, "List classes and functions and exit")
		printSrc    = flag.Bool("print", false, "Print the rewritten source of each hooked class and exit")
		noRewrite   = flag.Bool("no-rewrite", false, "Load classes as written")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Var(&args, "arg", "Argument to pass (repeatable)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: noasync -file <script.nas> [-func name[,name...]] [-arg value]...")
		fmt.Fprintln(os.Stderr, "       noasync -file <script.nas> -list")
		fmt.Fprintln(os.Stderr, "       noasync -file <script.nas> -print")
		fmt.Fprintln(os.Stderr, "       noasync -file <script.nas> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*file, *funcNames, args, *list, *printSrc, *noRewrite, *verbose, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file, funcNames string, args []string, listOnly, printOnly, noRewrite, verbose, interactive bool) error {
	ctx := context.Background()
	if noRewrite {
		ctx = rewrite.Suppress(ctx)
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir, base := filepath.Split(abs)

	if printOnly {
		data, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		return printRewritten(os.Stdout, base, string(data))
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(ctx, dir, base, logger)
	}

	rt, err := runtime.New(runtime.WithFS(os.DirFS(dir)), runtime.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	if funcNames == "" && !listOnly {
		_, err := rt.RunFile(ctx, base)
		return err
	}

	mod, err := rt.LoadFile(ctx, base)
	if err != nil {
		return fmt.Errorf("load %s: %w", base, err)
	}

	if listOnly {
		printModule(os.Stdout, mod)
		return nil
	}

	values := make([]any, len(args))
	for i, a := range args {
		values[i] = parseArg(a)
	}
	session := mod.NewSession()
	for _, name := range strings.Split(funcNames, ",") {
		session.Add(strings.TrimSpace(name), values...)
	}

	results, err := session.Run(ctx)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%s: error: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("%s: %s (%s)\n", r.Name, interp.Repr(r.Value), r.Span.Duration().Round(time.Microsecond))
	}
	return err
}

func printModule(w io.Writer, mod *runtime.Module) {
	fmt.Fprintf(w, "Module: %s (%s)\n", mod.Name, mod.File)
	for _, rep := range mod.Rewrites() {
		fmt.Fprintf(w, "Rewrote %s with magic %s: %d promoted, %d wrapped\n",
			rep.Class, rep.Magic, len(rep.Promoted), rep.Wrapped)
	}

	fmt.Fprintf(w, "\nClasses:\n")
	for _, c := range mod.Classes() {
		fmt.Fprintf(w, "  %s (line %d)\n", c.Name, c.Line)
		for _, m := range c.Methods {
			fmt.Fprintf(w, "    %s\n", formatFunc(m))
		}
	}

	fmt.Fprintf(w, "\nFunctions:\n")
	for _, f := range mod.Functions() {
		fmt.Fprintf(w, "  %s\n", formatFunc(f))
	}
}

func formatFunc(f runtime.Func) string {
	prefix := ""
	if f.Async {
		prefix = "async "
	}
	return prefix + f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}

// printRewritten shows how each hooked class's file would be rewritten,
// without running it.
func printRewritten(w io.Writer, file, src string) error {
	rewrites, err := noasync.Preview(file, src)
	if err != nil {
		return err
	}
	if len(rewrites) == 0 {
		fmt.Fprintln(w, "# no class uses the noasync hook")
		return nil
	}
	for _, cr := range rewrites {
		if !cr.Static {
			fmt.Fprintf(w, "# %s: magic is not a literal, skipped\n\n", cr.Class)
			continue
		}
		fmt.Fprintf(w, "# %s (magic %s): promoted %s\n", cr.Class, cr.Magic, strings.Join(cr.Promoted, ", "))
		fmt.Fprintln(w, cr.Source)
	}
	return nil
}

// parseArg reads a command-line value as a script literal. Anything that
// is not a number, bool, None or quoted string is passed as a string.
func parseArg(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	case "None":
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}
