// cmd/acorn/main.go
//
// acorn CLI - interactive shell for acorn store files.
//
// Usage:
//
//	acorn [flags] <store-file>
//
// Flags:
//
//	-ro            open read-only
//	-be            use big-endian (numerically ordered) keys
//	-config FILE   load engine options from a YAML file
//
// Use .help inside the shell for available commands.
package main

import (
	"flag"
	"fmt"
	"os"

	"acorn/pkg/btree"
	"acorn/pkg/cli"
	"acorn/pkg/store"
)

func main() {
	readOnly := flag.Bool("ro", false, "open the store read-only")
	bigEndian := flag.Bool("be", false, "use big-endian key encoding")
	configPath := flag.String("config", "", "YAML file with engine options")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: acorn [flags] <store-file>")
		os.Exit(1)
	}

	opts := btree.DefaultOptions()
	if *configPath != "" {
		var err error
		opts, err = btree.LoadOptions(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := cli.Config{
		ReadOnly: *readOnly,
		Options:  opts,
	}
	if *bigEndian {
		cfg.Encoding = store.KeyBigEndian
	}

	repl, err := cli.NewREPL(flag.Arg(0), cfg, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer repl.Close()

	repl.Run()
}
