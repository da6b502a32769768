// Command morph is the toolchain for morph.yaml interface declarations.
//
//	morph gen [-config morph.yaml] [-o morph_gen.go]
//	morph vet [-config morph.yaml] [dir]
//
// gen writes the Go glue file for the declared interfaces (tag types,
// interface values, typed facades, Provide registrations). vet type-checks
// the target package and reports every declared implementation function
// that is missing or has the wrong shape, before the program ever runs.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/morph/internal/config"
	"github.com/funvibe/morph/internal/gen"
	"github.com/mattn/go-isatty"
)

const (
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorReset = "\x1b[0m"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "gen":
		err = runGen(os.Args[2:])
	case "vet":
		err = runVet(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "morph: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, paint(os.Stderr, colorRed, "morph: "+err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `morph - dispatch-table toolchain

Usage:
  morph gen [-config morph.yaml] [-o morph_gen.go]   generate interface glue
  morph vet [-config morph.yaml] [dir]               check implementations

gen reads the interface declarations from morph.yaml and writes a Go file
with the tag types, interface values, typed facades and registrations.
vet loads the package in dir (default: the config's directory) and reports
implementation functions that are missing or have the wrong shape.
`)
}

func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigFile, "path to the morph config")
	out := fs.String("o", "", "output file (default: "+config.GeneratedFileName+" next to the config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	src, err := gen.Generate(cfg)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(*cfgPath), config.GeneratedFileName)
	}
	if err := os.WriteFile(outPath, src, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Println(paint(os.Stdout, colorGreen, "wrote "+outPath))
	return nil
}

func runVet(args []string) error {
	fs := flag.NewFlagSet("vet", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigFile, "path to the morph config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	dir := fs.Arg(0)
	if dir == "" {
		dir = filepath.Dir(*cfgPath)
	}
	if dir == "" {
		dir = "."
	}

	report, err := gen.Verify(dir, cfg)
	if err != nil {
		return err
	}
	if !report.OK() {
		for _, p := range report.Problems {
			fmt.Println(paint(os.Stdout, colorRed, p.String()))
		}
		return fmt.Errorf("%d of %d implementation(s) do not conform", len(report.Problems), report.Checked)
	}
	fmt.Println(paint(os.Stdout, colorGreen, fmt.Sprintf("ok: %d implementation(s) conform", report.Checked)))
	return nil
}

func loadConfig(path string) (*gen.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return gen.ParseConfig(data, path)
}

func paint(f *os.File, color, s string) string {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return s
	}
	return color + s + colorReset
}
