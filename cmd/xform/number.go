package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/midbel/cli"

	"github.com/midbel/xform/numbering"
)

var numberCmd = cli.Command{
	Name:    "number",
	Summary: "format a list of numbers with a numbering picture",
	Handler: &NumberCmd{},
}

type NumberCmd struct {
	Format    string
	Lang      string
	Letter    string
	GroupSep  string
	GroupSize int
}

func (c *NumberCmd) Run(args []string) error {
	set := flag.NewFlagSet("number", flag.ContinueOnError)
	set.StringVar(&c.Format, "format", "1", "numbering picture")
	set.StringVar(&c.Lang, "lang", "", "language of alphabetic numbering")
	set.StringVar(&c.Letter, "letter-value", "", "alphabetic or traditional")
	set.StringVar(&c.GroupSep, "group-separator", "", "separator of digit groups")
	set.IntVar(&c.GroupSize, "group-size", 0, "number of digits in a group")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() == 0 {
		return fmt.Errorf("no number given")
	}
	values := make([]float64, 0, set.NArg())
	for _, a := range set.Args() {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("%s: not a number", a)
		}
		values = append(values, f)
	}
	letter := numbering.ParseLetterValue(c.Letter)
	str := numbering.Format(values, c.Format, c.Lang, letter, c.GroupSep, c.GroupSize)
	fmt.Fprintln(os.Stdout, str)
	return nil
}
