// etfconv converts gateway messages between the binary term format and
// JSON, BSON, CBOR and YAML.
//
// Usage:
//
//	etfconv [--from FORMAT] [--to FORMAT] [--compress] [--reuse] [--verbose] [FILE...]
//
// Each FILE holds one document; with no FILE, one document is read from
// standard input.  Converted documents are written to standard output in
// argument order.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "etfconv: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var from, to string
	var compress, reuse, verbose bool

	flagSet := pflag.NewFlagSet("etfconv", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&from, "from", "etf", "input format: "+strings.Join(formats, ", "))
	flagSet.StringVar(&to, "to", "json", "output format: "+strings.Join(formats, ", "))
	flagSet.BoolVar(&compress, "compress", false, "wrap etf output in a compressed term")
	flagSet.BoolVar(&reuse, "reuse", false, "share codec buffers and interned keys across inputs")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log each conversion to stderr")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "usage: etfconv [flags] [FILE...]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	conv, err := newConverter(from, to, reuse, compress)
	if err != nil {
		return err
	}
	if compress && to != "etf" {
		logger.Warn("--compress only applies to etf output", "to", to)
	}

	inputs := flagSet.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	var out []byte
	for _, name := range inputs {
		in, err := readInput(name, stdin)
		if err != nil {
			return err
		}

		start := time.Now()
		out, err = conv.convert(out[:0], in)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Debug("converted",
			"input", name,
			"from", from,
			"to", to,
			"in_bytes", len(in),
			"out_bytes", len(out),
			"elapsed", time.Since(start),
		)

		if _, err := stdout.Write(out); err != nil {
			return err
		}
	}
	return nil
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
