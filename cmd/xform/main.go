package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"
)

var errFail = errors.New("fail")

var (
	summary = "xform applies transformation programs to xml documents"
	help    = `xform runs programs compiled from stylesheets against xml documents.

The program is a YAML file describing templates, globals, keys and the output
declaration. Its result can be serialized, pulled item by item or checked
against an expected document.`
)

func main() {
	var (
		set  = cli.NewFlagSet("xform")
		root = prepare()
	)
	root.SetSummary(summary)
	root.SetHelp(help)
	if err := set.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			root.Help()
			os.Exit(2)
		}
	}
	err := root.Execute(set.Args())
	if err != nil {
		if s, ok := err.(cli.SuggestionError); ok && len(s.Others) > 0 {
			fmt.Fprintln(os.Stderr, "similar command(s)")
			for _, n := range s.Others {
				fmt.Fprintln(os.Stderr, "-", n)
			}
		}
		if !errors.Is(err, errFail) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func prepare() *cli.CommandTrie {
	root := cli.New()
	root.Register([]string{"transform"}, &transformCmd)
	root.Register([]string{"exec"}, &transformCmd)
	root.Register([]string{"read"}, &readCmd)
	root.Register([]string{"number"}, &numberCmd)
	root.Register([]string{"format"}, &formatCmd)
	root.Register([]string{"compare"}, &compareCmd)
	root.Register([]string{"cmp"}, &compareCmd)
	return root
}
