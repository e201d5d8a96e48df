package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/midbel/cli"

	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

var transformCmd = cli.Command{
	Name:    "transform",
	Alias:   []string{"exec"},
	Summary: "apply the templates of a program to a xml document",
	Handler: &TransformCmd{
		Params: make(Params),
	},
}

type TransformCmd struct {
	Config  string
	Mode    string
	File    string
	Limit   int
	Strict  bool
	Trace   string
	Quiet   bool
	Elapsed bool
	Expect  string
	Params  Params
	ParserOptions
}

func (c *TransformCmd) Run(args []string) error {
	set := flag.NewFlagSet("transform", flag.ContinueOnError)
	set.StringVar(&c.Config, "c", "", "configuration file")
	set.StringVar(&c.Mode, "m", "", "initial mode")
	set.StringVar(&c.File, "f", "", "output file")
	set.IntVar(&c.Limit, "limit", 0, "number of bytes buffered before being written")
	set.BoolVar(&c.Strict, "strict", false, "fail when the result is not well formed")
	set.StringVar(&c.Trace, "trace", "", "trace instructions to stdout or stderr")
	set.BoolVar(&c.Quiet, "q", false, "discard the result")
	set.BoolVar(&c.Elapsed, "time", false, "print the time taken by the transformation")
	set.StringVar(&c.Expect, "expect", "", "compare the result with the given document instead of writing it")
	set.Var(c.Params, "p", "global param given as name=value")
	set.BoolVar(&c.StrictNS, "strict-ns", false, "strict namespace checking")
	set.BoolVar(&c.TrimSpace, "trim-space", false, "trim whitespace around text nodes")
	set.BoolVar(&c.DropEmpty, "drop-empty", false, "drop whitespace only text nodes")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("program file expected")
	}
	cfg, err := c.configure()
	if err != nil {
		return err
	}
	proc, err := loadProcessor(set.Arg(0), cfg, c.Params)
	if err != nil {
		return err
	}
	doc, err := parseDocument(set.Arg(1), c.ParserOptions)
	if err != nil {
		return err
	}
	if c.Expect != "" {
		return c.check(proc, doc)
	}

	var w io.Writer = io.Discard
	if !c.Quiet {
		f, err := createFile(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	now := time.Now()
	if err := proc.Transform(w, doc); err != nil {
		return err
	}
	if c.Elapsed {
		fmt.Fprintf(os.Stderr, "transformation took %s", time.Since(now))
		fmt.Fprintln(os.Stderr)
	}
	return nil
}

func (c *TransformCmd) check(proc *xslt.Processor, doc *xml.Document) error {
	want, err := parseDocument(c.Expect, c.ParserOptions)
	if err != nil {
		return err
	}
	got, err := proc.TransformTree(doc)
	if err != nil {
		return err
	}
	res := xml.Compare(want, got, xml.CmpOrdered)
	if !res.Match {
		reportDifference(res)
		return fmt.Errorf("%s: %w", c.Expect, xml.ErrCompare)
	}
	return nil
}

// configure loads the configuration file and applies the flags given on the
// command line over it.
func (c *TransformCmd) configure() (Config, error) {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return cfg, err
	}
	if c.Mode != "" {
		cfg.Mode = c.Mode
	}
	if c.Limit > 0 {
		cfg.Limit = c.Limit
	}
	if c.Trace != "" {
		cfg.Trace = c.Trace
	}
	cfg.Strict = cfg.Strict || c.Strict
	return cfg, nil
}
