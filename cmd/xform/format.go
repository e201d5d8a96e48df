package main

import (
	"flag"

	"github.com/midbel/cli"

	"github.com/midbel/xform/xml"
)

var formatCmd = cli.Command{
	Name:    "format",
	Summary: "rewrite a xml document",
	Handler: &FormatCmd{},
}

type WriterOptions struct {
	NoNamespace bool
	NoProlog    bool
	NoComment   bool
	Compact     bool
	Indent      string
}

type FormatCmd struct {
	OutFile string
	WriterOptions
	ParserOptions
}

func (f *FormatCmd) Run(args []string) error {
	set := flag.NewFlagSet("format", flag.ContinueOnError)
	set.BoolVar(&f.NoNamespace, "no-namespace", false, "don't write xml namespace into the output document")
	set.BoolVar(&f.NoProlog, "no-prolog", false, "don't write the xml prolog into the output document")
	set.BoolVar(&f.NoComment, "no-comment", false, "don't write the comments of the input document")
	set.BoolVar(&f.Compact, "compact", false, "write compact output")
	set.StringVar(&f.Indent, "indent", "  ", "string used to indent nested elements")
	set.BoolVar(&f.StrictNS, "strict-ns", false, "strict namespace checking")
	set.BoolVar(&f.DropEmpty, "drop-empty", false, "drop whitespace only text nodes")
	set.StringVar(&f.OutFile, "f", "", "path of the file where the document is written")
	if err := set.Parse(args); err != nil {
		return err
	}
	doc, err := parseDocument(set.Arg(0), f.ParserOptions)
	if err != nil {
		return err
	}
	return writeDocument(doc, f.OutFile, f.WriterOptions)
}

func writeDocument(doc *xml.Document, file string, options WriterOptions) error {
	w, err := createFile(file)
	if err != nil {
		return err
	}
	defer w.Close()

	ws := xml.NewWriter(w)
	ws.Indent = options.Indent
	if options.NoNamespace {
		ws.WriterOptions |= xml.OptionNoNamespace
	}
	if options.NoComment {
		ws.WriterOptions |= xml.OptionNoComment
	}
	if options.NoProlog {
		ws.WriterOptions |= xml.OptionNoProlog
	}
	if options.Compact {
		ws.WriterOptions |= xml.OptionCompact
	}
	return ws.Write(doc)
}
