// Command ttylog pretty-prints a captured serial transcript from a qrun
// run: it wraps lines to a column width and, with -strip, removes ANSI
// escape sequences. The kernel's own log output (internal/klog) is plain
// text and the console window (internal/console) drops control bytes, so
// stripping only affects sequences a transcript carries from other
// sources. Grounded on tinyrange-cc's terminal stack
// (internal/term), narrowed from a full VT emulator down to the column
// wrapping and escape-aware width calculation github.com/charmbracelet/x/ansi
// already exports, since ttylog only needs to render a transcript, not host
// an interactive session.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/x/ansi"
)

func main() {
	var (
		width = flag.Int("width", 100, "column width to wrap transcript lines at")
		strip = flag.Bool("strip", false, "strip ANSI escape sequences instead of preserving them")
	)
	flag.Parse()

	var in *os.File
	if args := flag.Args(); len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "ttylog: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	} else {
		in = os.Stdin
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for scanner.Scan() {
		line := scanner.Text()
		if *strip {
			line = ansi.Strip(line)
		}
		wrapped := ansi.Wrap(line, *width, "")
		fmt.Fprintln(out, wrapped)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "ttylog: reading transcript: %v\n", err)
		os.Exit(1)
	}
}
