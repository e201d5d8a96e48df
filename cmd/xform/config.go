package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/midbel/xform/output"
	"github.com/midbel/xform/xml"
	"github.com/midbel/xform/xslt"
)

// Config is the content of the configuration file given to the transform
// and read commands.
//
//	mode = "summary"
//	strict = true
//	trace = "stderr"
//	log-level = "debug"
//
//	[output]
//	method = "html"
//	indent = true
//
//	[params]
//	title = "report"
//	limit = 10
type Config struct {
	Mode     string         `toml:"mode"`
	Strict   bool           `toml:"strict"`
	Limit    int            `toml:"limit"`
	Trace    string         `toml:"trace"`
	LogLevel string         `toml:"log-level"`
	Output   OutputConfig   `toml:"output"`
	Params   map[string]any `toml:"params"`
}

type OutputConfig struct {
	Method        string   `toml:"method"`
	Version       string   `toml:"version"`
	Encoding      string   `toml:"encoding"`
	MediaType     string   `toml:"media-type"`
	Indent        bool     `toml:"indent"`
	OmitProlog    bool     `toml:"omit-xml-declaration"`
	Standalone    string   `toml:"standalone"`
	DoctypePublic string   `toml:"doctype-public"`
	DoctypeSystem string   `toml:"doctype-system"`
	CData         []string `toml:"cdata-section-elements"`
}

func loadConfig(file string) (Config, error) {
	var cfg Config
	if file == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(file, &cfg)
	if err != nil {
		return cfg, err
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return cfg, fmt.Errorf("%s: unknown option %s", file, keys[0])
	}
	return cfg, nil
}

// Declaration gives the output settings of the configuration. They are
// applied over the output declaration of the program.
func (c OutputConfig) Declaration() (output.Output, error) {
	method, err := output.ParseMethod(c.Method)
	if err != nil {
		return output.Output{}, err
	}
	out := output.Output{
		Method:        method,
		Version:       c.Version,
		Encoding:      c.Encoding,
		MediaType:     c.MediaType,
		Indent:        c.Indent,
		OmitProlog:    c.OmitProlog,
		Standalone:    c.Standalone,
		DoctypePublic: c.DoctypePublic,
		DoctypeSystem: c.DoctypeSystem,
	}
	for _, n := range c.CData {
		qn, err := xml.ParseName(n)
		if err != nil {
			return out, err
		}
		out.CDataElements = append(out.CDataElements, qn)
	}
	return out, nil
}

func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if c.LogLevel != "" {
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, err
		}
	}
	opts := slog.HandlerOptions{
		Level: level,
	}
	return slog.New(slog.NewTextHandler(w, &opts)), nil
}

func (c Config) Tracer() (xslt.Tracer, error) {
	switch strings.ToLower(c.Trace) {
	case "", "none":
		return xslt.NoopTracer(), nil
	case "stdout":
		return xslt.Stdout(), nil
	case "stderr":
		return xslt.Stderr(), nil
	default:
		return nil, fmt.Errorf("%s: unsupported tracer", c.Trace)
	}
}

// Options gives the options of the processor. Params given on the command
// line replace the ones of the file.
func (c Config) Options(params map[string]any) ([]xslt.Option, error) {
	logger, err := c.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	tracer, err := c.Tracer()
	if err != nil {
		return nil, err
	}
	options := []xslt.Option{
		xslt.WithLogger(logger),
		xslt.WithTracer(tracer),
		xslt.WithStrict(c.Strict),
		xslt.WithMode(c.Mode),
		xslt.WithLimit(c.Limit),
		xslt.WithParams(c.Params),
		xslt.WithParams(params),
	}
	return options, nil
}
