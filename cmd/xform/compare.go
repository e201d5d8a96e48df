package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"

	"github.com/midbel/xform/xml"
)

var compareCmd = cli.Command{
	Name:    "compare",
	Alias:   []string{"cmp"},
	Summary: "compare two xml documents",
	Handler: &CompareCmd{},
}

type CompareCmd struct {
	Unordered bool
}

func (c *CompareCmd) Run(args []string) error {
	set := flag.NewFlagSet("compare", flag.ContinueOnError)
	set.BoolVar(&c.Unordered, "unordered", false, "children of elements can appear in any order")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 2 {
		return fmt.Errorf("two documents expected")
	}
	mode := xml.CmpOrdered
	if c.Unordered {
		mode = xml.CmpUnordered
	}
	res, err := xml.CompareFiles(set.Arg(0), set.Arg(1), mode)
	if err == nil {
		return nil
	}
	if res.Source != nil && res.Target != nil {
		reportDifference(res)
	}
	return err
}

func reportDifference(res xml.CmpResult) {
	fmt.Fprintln(os.Stderr, "<", xml.WriteNode(res.Source))
	fmt.Fprintln(os.Stderr, ">", xml.WriteNode(res.Target))
}
