package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/midbel/cli"

	"github.com/midbel/xform/output"
)

var readCmd = cli.Command{
	Name:    "read",
	Summary: "print the items produced by a program one at a time",
	Handler: &ReadCmd{
		Params: make(Params),
	},
}

type ReadCmd struct {
	Config string
	Mode   string
	Skip   bool
	Params Params
	ParserOptions
}

func (c *ReadCmd) Run(args []string) error {
	set := flag.NewFlagSet("read", flag.ContinueOnError)
	set.StringVar(&c.Config, "c", "", "configuration file")
	set.StringVar(&c.Mode, "m", "", "initial mode")
	set.BoolVar(&c.Skip, "skip-whitespace", false, "do not print whitespace items")
	set.Var(c.Params, "p", "global param given as name=value")
	set.BoolVar(&c.StrictNS, "strict-ns", false, "strict namespace checking")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("program file expected")
	}
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Mode != "" {
		cfg.Mode = c.Mode
	}
	proc, err := loadProcessor(set.Arg(0), cfg, c.Params)
	if err != nil {
		return err
	}
	doc, err := parseDocument(set.Arg(1), c.ParserOptions)
	if err != nil {
		return err
	}
	r := proc.Reader(doc)
	for {
		it, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if c.Skip && it.Kind == output.ItemWhitespace {
			continue
		}
		fmt.Fprintln(os.Stdout, describeItem(it))
	}
	return nil
}

func describeItem(it output.Item) string {
	var str strings.Builder
	str.WriteString(strings.Repeat("  ", it.Depth))
	str.WriteString(it.Kind.String())
	switch it.Kind {
	case output.ItemElement:
		str.WriteString(" ")
		str.WriteString(it.Name.QualifiedName())
		for _, ns := range it.Namespaces {
			str.WriteString(" xmlns")
			if ns.Prefix != "" {
				str.WriteString(":")
				str.WriteString(ns.Prefix)
			}
			str.WriteString("=")
			str.WriteString(strconv.Quote(ns.Uri))
		}
		for _, a := range it.Attrs {
			str.WriteString(" ")
			str.WriteString(a.Name.QualifiedName())
			str.WriteString("=")
			str.WriteString(strconv.Quote(a.Value))
		}
		if it.Empty {
			str.WriteString(" (empty)")
		}
	case output.ItemEndElement:
		str.WriteString(" ")
		str.WriteString(it.Name.QualifiedName())
	case output.ItemInstruction:
		str.WriteString(" ")
		str.WriteString(it.Name.QualifiedName())
		str.WriteString(" ")
		str.WriteString(strconv.Quote(it.Value))
	default:
		str.WriteString(" ")
		str.WriteString(strconv.Quote(it.Value))
	}
	return str.String()
}
