package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/midbel/xform/program"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xpath"
	"github.com/midbel/xform/xslt"
)

type ParserOptions struct {
	StrictNS  bool
	TrimSpace bool
	DropEmpty bool
}

// Params collects the name=value pairs given with repeated -p flags.
type Params map[string]any

func (p Params) String() string {
	var list []string
	for k, v := range p {
		list = append(list, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(list, ",")
}

func (p Params) Set(str string) error {
	name, value, ok := strings.Cut(str, "=")
	if !ok || name == "" {
		return fmt.Errorf("%s: param should be given as name=value", str)
	}
	p[strings.TrimSpace(name)] = value
	return nil
}

func parseDocument(file string, options ParserOptions) (*xml.Document, error) {
	r, err := openFile(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	p := xml.NewParser(r)
	p.StrictNS = options.StrictNS
	p.TrimSpace = options.TrimSpace
	p.KeepEmpty = !options.DropEmpty
	return p.Parse()
}

// loadProcessor decodes the program in file and applies the configuration
// over its output declaration.
func loadProcessor(file string, cfg Config, params Params) (*xslt.Processor, error) {
	eval := xpath.New()
	sheet, err := program.DecodeFile(file, eval)
	if err != nil {
		return nil, err
	}
	out, err := cfg.Output.Declaration()
	if err != nil {
		return nil, err
	}
	sheet.Output = sheet.Output.Merge(out)

	options, err := cfg.Options(params)
	if err != nil {
		return nil, err
	}
	return xslt.NewProcessor(sheet, eval, options...), nil
}

func openFile(file string) (io.ReadCloser, error) {
	if file == "" || file == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	u, err := url.Parse(file)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", "text/xml")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("%s: fail to retrieve remote file (%s)", file, res.Status)
		}
		return res.Body, nil
	default:
		return os.Open(file)
	}
}

func createFile(file string) (io.WriteCloser, error) {
	if file == "" || file == "-" {
		return nopWriteCloser{Writer: os.Stdout}, nil
	}
	return os.Create(file)
}

type nopWriteCloser struct {
	io.Writer
}

func (_ nopWriteCloser) Close() error {
	return nil
}
