package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/superloach/pss/pkg/pss"
	"github.com/superloach/pss/pkg/raster"
)

const Version = "0.2.0"

const HelpMessage = `
pss evaluates Picture Scripts, which describe images built from raster files.
	pss v%s

By default, pss reads a script from stdin.
	pss < map.pss
Evaluate script files by passing them to the interpreter.
	pss map.pss other.pss
Print the script lines page 1 depends on with -describe.
	pss -describe -page 1 map.pss
Start an interactive repl with -repl.
	pss -repl
	> ___
Run from the command line with -eval.
	pss -eval 'PAGE(IMAGE("map.tif"))'

`

const historyFile = ".pss_history"

type options struct {
	page     int
	describe bool
	worlds   bool
}

func main() {
	flag.Usage = func() {
		fmt.Printf(HelpMessage, Version)
		flag.PrintDefaults()
	}

	// output
	page := flag.Int("page", -1, "Evaluate only this page, counting from 0")
	describe := flag.Bool("describe", false, "Print the descriptive script of each page instead of its image")
	worlds := flag.Bool("worlds", false, "Print the script defining the worlds in use")

	// cli arguments
	verbose := flag.Bool("verbose", false, "Log all interpreter debug information")
	debugLexer := flag.Bool("debug-lex", false, "Log lexer output")
	debugParser := flag.Bool("debug-parse", false, "Log parser output")
	debugEval := flag.Bool("debug-eval", false, "Log every calculated value")
	debugDescribe := flag.Bool("debug-describe", false, "Log descriptive scripts extracted for on-demand mosaics")
	dump := flag.Bool("dump", false, "Dump scopes and worlds after parsing")

	version := flag.Bool("version", false, "Print version string and exit")
	help := flag.Bool("help", false, "Print help message and exit")

	repl := flag.Bool("repl", false, "Run as an interactive repl")
	eval := flag.String("eval", "", "Evaluate argument as a Picture Script")

	flag.Parse()

	// collect all other non-parsed arguments from the CLI as files to be run
	files := flag.Args()

	// if asked for version, disregard everything else
	if *version {
		fmt.Printf("pss v%s\n", Version)
		os.Exit(0)
	} else if *help {
		flag.Usage()
		os.Exit(0)
	}

	interp := &pss.Interpreter{
		Engine: raster.NewEngine(),
		Debug: pss.DebugConfig{
			Lex:      *debugLexer || *verbose,
			Parse:    *debugParser || *verbose,
			Eval:     *debugEval || *verbose,
			Describe: *debugDescribe || *verbose,
			Dump:     *dump || *verbose,
		},
	}
	opts := options{page: *page, describe: *describe, worlds: *worlds}

	cwd, err := os.Getwd()
	if err != nil {
		pss.LogErrf(pss.ErrSystem, "cannot find working directory:\n\t-> %s", err.Error())
	}
	stdinURL := path.Join(filepath.ToSlash(cwd), "stdin.pss")

	if *repl {
		os.Exit(runRepl(interp, stdinURL))
	} else if *eval != "" {
		os.Exit(runScript(interp, stdinURL, strings.NewReader(*eval), opts))
	} else if len(files) > 0 {
		status := 0
		for _, filePath := range files {
			// expand out ~ for $HOME, which is not done by shells
			if strings.HasPrefix(filePath, "~"+string(os.PathSeparator)) {
				filePath = os.Getenv("HOME") + string(os.PathSeparator) + filePath[2:]
			}

			// canonicalize relative paths, but not absolute ones
			if !filepath.IsAbs(filePath) {
				filePath = filepath.Join(cwd, filePath)
			}

			if code := runFile(interp, filePath, opts); code != 0 {
				status = code
			}
		}
		os.Exit(status)
	} else {
		os.Exit(runScript(interp, stdinURL, os.Stdin, opts))
	}
}

// runScript evaluates a script read from input in a session of its own,
// and returns the exit status.
func runScript(interp *pss.Interpreter, url string, input io.Reader, opts options) int {
	s := interp.CreateSession(url)
	defer s.Close()

	if err := s.Exec(input); err != nil {
		pss.LogError(err)
		return 1
	}
	return printPages(s, opts)
}

func runFile(interp *pss.Interpreter, filePath string, opts options) int {
	s := interp.CreateSession(filePath)
	defer s.Close()

	if err := s.ExecPath(filePath); err != nil {
		pss.LogError(err)
		return 1
	}
	return printPages(s, opts)
}

// printPages prints the pages of s selected by opts, and returns the exit
// status.
func printPages(s *pss.Session, opts options) int {
	if opts.worlds {
		script, err := s.WorldScript()
		if err != nil {
			pss.LogError(err)
			return 1
		}
		fmt.Print(script)
	}

	first, last := 0, s.CountPages()-1
	if opts.page >= 0 {
		first, last = opts.page, opts.page
	}

	status := 0
	for i := first; i <= last; i++ {
		if err := printPage(s, i, opts.describe); err != nil {
			pss.LogError(err)
			status = 1
		}
	}
	return status
}

func printPage(s *pss.Session, i int, describe bool) error {
	if describe {
		script, err := s.PageScript(i)
		if err != nil {
			return err
		}
		fmt.Println(script)
		return nil
	}

	r, err := s.EvaluatePage(i)
	if err != nil {
		return err
	}
	desc, err := s.PageDescription(i)
	if err != nil {
		return err
	}

	if desc != "" {
		pss.LogInteractivef("page %d (%s): %s", i, desc, r.Extent())
	} else {
		pss.LogInteractivef("page %d: %s", i, r.Extent())
	}
	fmt.Println(r.Describe())
	return nil
}

// runRepl reads scripts line by line into a single session, printing
// every page as soon as it is declared.
func runRepl(interp *pss.Interpreter, url string) int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := interp.CreateSession(url)
	defer s.Close()

	for {
		code, err := readScript(ln)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return 0
		} else if err != nil {
			pss.LogSafeErr(pss.ErrSystem, "unexpected end of input:\n\t-> "+err.Error())
			return 1
		}

		switch strings.TrimSpace(code) {
		case "":
			continue
		case ":quit":
			return 0
		case ":dump":
			s.Dump()
			continue
		case ":worlds":
			if script, err := s.WorldScript(); err != nil {
				pss.LogError(err)
			} else {
				fmt.Print(script)
			}
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		// a failed script leaves whatever it declared before the error
		pages := s.CountPages()
		if err := s.Exec(strings.NewReader(code)); err != nil {
			pss.LogError(err)
		}
		for i := pages; i < s.CountPages(); i++ {
			if err := printPage(s, i, false); err != nil {
				pss.LogError(err)
			}
		}
	}
}

// readScript reads lines until they form a complete script, so that
// STATEMENT definitions and long calls can span several lines.
func readScript(ln *liner.State) (string, error) {
	var b strings.Builder
	for {
		prompt := "> "
		if b.Len() > 0 {
			prompt = ". "
		}
		line, err := ln.Prompt(prompt)
		if err != nil {
			return "", err
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		code := b.String()
		if !pss.Incomplete(code) {
			return code, nil
		}
	}
}
