package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/latticeml/lattice/pkg/lnf"
)

func inspectCmd() *cli.Command {
	var (
		path     string
		asJSON   bool
		showAll  bool
		showScan bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the contents of an .lnf model file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .lnf file",
				Required:    true,
				Destination: &path,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "dump the model header as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "weights",
				Aliases:     []string{"w"},
				Usage:       "list weight tensors",
				Destination: &showAll,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "scan weight tensors and print min/max",
				Destination: &showScan,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := lnf.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			if asJSON {
				data, err := json.MarshalIndent(f.Model, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("model:   %s\n", f.Model.Name)
			fmt.Printf("format:  LNF v%d.%d, %d bytes\n", f.Header.Major, f.Header.Minor, f.Header.FileSize)
			fmt.Printf("layers:  %d\n", len(f.Model.Layers))
			for _, l := range f.Model.Layers {
				extra := ""
				if l.Activation != "" {
					extra = "  act=" + l.Activation
				}
				if l.DatasetName != "" {
					extra += "  dataset=" + l.DatasetName
				}
				fmt.Printf("  %-8s %-16s %dx%dx%d%s\n", l.Kind, l.Name, l.X, max(l.Y, 1), max(l.Z, 1), extra)
			}

			if showAll || showScan {
				fmt.Printf("weights: %d\n", len(f.Model.Weights))
				for _, w := range f.Model.Weights {
					line := fmt.Sprintf("  %-20s %5dx%-5d %10d bytes", w.Name, w.Rows, w.Cols, w.Size)
					if showScan {
						lo, hi, err := tensorRange(f, w.Name)
						if err != nil {
							return err
						}
						line += fmt.Sprintf("  min=%g max=%g", lo, hi)
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}

func tensorRange(f *lnf.File, name string) (float32, float32, error) {
	vals, err := f.Tensor(name)
	if err != nil {
		return 0, 0, err
	}
	if len(vals) == 0 {
		return 0, 0, nil
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, nil
}
