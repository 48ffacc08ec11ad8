package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Venancio-01/qingshan-map/internal/layer"
	"github.com/Venancio-01/qingshan-map/internal/shapefile"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Output   string `short:"o" long:"out"      description:"Output file path. Writes to stdout if empty"`
	Format   string `short:"f" long:"format"   description:"Output format" choice:"json" choice:"yaml" default:"yaml"`
	Encoding string `short:"e" long:"encoding" description:"DBF code page override (e.g. GBK, UTF-8)"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1" description:"Shapefiles to describe"`
	} `positional-args:"yes"`
}

// Info summarizes one shapefile.
type Info struct {
	File         string        `json:"file" yaml:"file"`
	GeometryType string        `json:"geometry_type" yaml:"geometry_type"`
	CRS          string        `json:"crs,omitempty" yaml:"crs,omitempty"`
	Fields       []layer.Field `json:"fields" yaml:"fields"`
	BBox         []float64     `json:"bbox,omitempty" yaml:"bbox,flow,omitempty"`
	Features     int           `json:"features" yaml:"features"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	infos := make([]Info, 0, len(opts.Args.Files))
	for _, path := range opts.Args.Files {
		l, err := shapefile.Read(path, shapefile.Options{Encoding: opts.Encoding})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}

		info := Info{
			File:         path,
			GeometryType: l.GeometryType,
			CRS:          l.CRS,
			Fields:       l.Fields,
			Features:     l.Len(),
		}
		if l.Len() > 0 {
			b := l.Bound()
			info.BBox = []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
		}
		infos = append(infos, info)
	}

	// marshal
	var (
		outputData []byte
		err        error
	)
	if opts.Format == "json" {
		outputData, err = json.MarshalIndent(infos, "", "  ")
	} else {
		outputData, err = yaml.Marshal(infos)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Described %d shapefiles to %s (format: %s)\n", len(infos), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
