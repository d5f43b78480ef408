// pkg/cli/repl.go
// Package cli implements the interactive shell over a store file.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"acorn/pkg/btree"
	"acorn/pkg/record"
	"acorn/pkg/store"
)

// REPL provides a read-eval-print loop over a single store file.
type REPL struct {
	// st is the open store
	st *store.Store

	// shell handles input/output and command reading
	shell *Shell

	// output is where results are written
	output io.Writer

	// errOutput is where errors are written
	errOutput io.Writer

	// exitRequested indicates that .exit was called
	exitRequested bool
}

// Config selects how the REPL opens the store.
type Config struct {
	ReadOnly bool
	Options  btree.Options
	Encoding store.KeyEncoding
}

// NewREPL opens the store at path with stdin as input.
func NewREPL(path string, cfg Config, output, errOutput io.Writer) (*REPL, error) {
	return NewREPLWithInput(path, cfg, os.Stdin, output, errOutput)
}

// NewREPLWithInput opens the store with custom streams. This is what the
// tests use for scripted sessions.
func NewREPLWithInput(path string, cfg Config, input io.Reader, output, errOutput io.Writer) (*REPL, error) {
	var st *store.Store
	var err error
	if cfg.ReadOnly {
		st, err = store.OpenReadOnlyWithOptions(path, cfg.Options, cfg.Encoding)
	} else {
		st, err = store.OpenWithOptions(path, cfg.Options, cfg.Encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &REPL{
		st:        st,
		shell:     NewShell(input, output, errOutput),
		output:    output,
		errOutput: errOutput,
	}, nil
}

// Close closes the underlying store.
func (r *REPL) Close() error {
	if r.st != nil {
		return r.st.Close()
	}
	return nil
}

// Run reads and executes commands until EOF or .exit.
func (r *REPL) Run() {
	fmt.Fprintln(r.output, "acorn shell")
	fmt.Fprintln(r.output, "Enter \".help\" for usage hints.")

	for !r.exitRequested {
		cmd, eof := r.shell.ReadCommand()
		if cmd != "" {
			if err := r.Execute(cmd); err != nil {
				fmt.Fprintf(r.errOutput, "error: %v\n", err)
			}
		}
		if eof {
			fmt.Fprintln(r.output)
			break
		}
	}
}

// Execute runs a single command line.
func (r *REPL) Execute(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case ".help":
		r.printHelp()
		return nil
	case ".exit", ".quit":
		r.exitRequested = true
		return nil
	case "put":
		return r.cmdPut(fields[1:])
	case "sample":
		return r.cmdSample(fields[1:])
	case "get":
		return r.cmdGet(fields[1:])
	case "search":
		return r.cmdSearch(fields[1:])
	case "scan":
		return r.cmdScan(fields[1:])
	case "del":
		return r.cmdDel(fields[1:])
	case "stat":
		return r.cmdStat()
	case "check":
		return r.cmdCheck()
	default:
		return fmt.Errorf("unknown command %q (try .help)", fields[0])
	}
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.output, `Commands:
  put <ts> <value>                 store a raw value under timestamp ts
  sample <ts> <src> <metric> <v>   store an encoded metric sample
  get <ts>                         exact lookup
  search <ts>                      closest entry not greater than ts
  scan <ts> <limit>                range scan forward from ts
  del <ts>                         delete the entry at ts
  stat                             tree shape and freelist counters
  check                            verify structural invariants
  .help                            this text
  .exit                            quit
`)
}

func (r *REPL) cmdPut(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: put <ts> <value>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	return r.st.Append(ts, []byte(strings.Join(args[1:], " ")))
}

func (r *REPL) cmdSample(args []string) error {
	if len(args) != 4 {
		return errors.New("usage: sample <ts> <source> <metric> <value>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", args[3], err)
	}
	s := record.Sample{
		Timestamp: ts,
		Source:    args[1],
		Metric:    args[2],
		Value:     value,
	}
	return r.st.Append(ts, s.Encode())
}

func (r *REPL) cmdGet(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get <ts>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	value, err := r.st.Get(ts)
	if err != nil {
		return err
	}
	r.printValue(ts, value)
	return nil
}

func (r *REPL) cmdSearch(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: search <ts>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	value, err := r.st.Search(ts)
	if err != nil {
		return err
	}
	r.printValue(ts, value)
	return nil
}

func (r *REPL) cmdScan(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: scan <ts> <limit>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	limit, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad limit %q: %w", args[1], err)
	}

	it, err := r.st.RangeQuery(ts, limit)
	if err != nil {
		return err
	}
	count := 0
	for it.Next() {
		entryTs, err := it.Timestamp()
		if err != nil {
			return err
		}
		r.printValue(entryTs, it.Value())
		count++
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Fprintf(r.output, "%d entries\n", count)
	return nil
}

func (r *REPL) cmdDel(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: del <ts>")
	}
	ts, err := parseTs(args[0])
	if err != nil {
		return err
	}
	return r.st.Delete(ts)
}

func (r *REPL) cmdStat() error {
	stats, err := r.st.Tree().Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.output, "depth %d, keys %d, leaves %d, internals %d, free pages %d, max page %d\n",
		stats.Depth, stats.Keys, stats.LeafNodes, stats.InternalNodes, stats.FreePages, stats.MaxPage)
	return nil
}

func (r *REPL) cmdCheck() error {
	if err := r.st.Tree().Check(); err != nil {
		return err
	}
	fmt.Fprintln(r.output, "ok")
	return nil
}

// printValue shows a sample-decoded view when the payload parses as one,
// and the raw bytes otherwise.
func (r *REPL) printValue(ts uint64, value []byte) {
	if s, err := record.Decode(value); err == nil && s.Source != "" && s.Metric != "" {
		fmt.Fprintf(r.output, "%d: %s/%s = %d (at %d)\n", ts, s.Source, s.Metric, s.Value, s.Timestamp)
		return
	}
	fmt.Fprintf(r.output, "%d: %s\n", ts, value)
}

func parseTs(arg string) (uint64, error) {
	ts, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q: %w", arg, err)
	}
	return ts, nil
}
