// wlgen turns a protocol description (XML or YAML) into the Go tables and
// typed wrappers the wayland package dispatches through.
//
//	wlgen -i protocol/core.xml -o core_protocol.go -p wayland --core --prefix wl_
//	wlgen -i demo.xml -o demo.go -p demo --prefix wl_
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/Zereker/wayland/internal/scanner"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "wlgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		input, output string
		opts          scanner.Options
	)

	flagSet := pflag.NewFlagSet("wlgen", pflag.ContinueOnError)
	flagSet.StringVarP(&input, "input", "i", "", "protocol description (.xml, .yaml or .yml)")
	flagSet.StringVarP(&output, "output", "o", "", "generated Go file (default: standard output)")
	flagSet.StringVarP(&opts.Package, "package", "p", "", "package name of the generated file")
	flagSet.BoolVar(&opts.Core, "core", false, "generate the tables of the wayland package itself")
	flagSet.StringVar(&opts.TrimPrefix, "prefix", "", "prefix stripped from interface names")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return errors.Errorf("unexpected argument: %s", extra[0])
	}
	if input == "" {
		return errors.New("--input is required")
	}
	if opts.Package == "" {
		return errors.New("--package is required")
	}

	p, err := scanner.ParseFile(input)
	if err != nil {
		return err
	}
	opts.Source = input
	src, err := scanner.Generate(p, opts)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = stdout.Write(src)
		return err
	}
	return errors.Wrap(os.WriteFile(output, src, 0o644), "write output")
}
