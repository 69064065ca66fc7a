package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/latticeml/lattice/internal/backend"
	"github.com/latticeml/lattice/internal/netdata"
	"github.com/latticeml/lattice/internal/network"
)

// inputFile is the on-disk shape of --input: one entry per input layer,
// in the model's layer order.
type inputFile []struct {
	Name   string      `json:"name"`
	X      uint32      `json:"x"`
	Y      uint32      `json:"y"`
	Z      uint32      `json:"z"`
	Values [][]float32 `json:"values"`
}

type outputFile []struct {
	Name    string      `json:"name"`
	Values  [][]float32 `json:"values,omitempty"`
	Indices [][]uint32  `json:"indices,omitempty"`
	Scores  [][]float32 `json:"scores,omitempty"`
}

func predictCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
	)

	return &cli.Command{
		Name:  "predict",
		Usage: "Run a batch prediction against a model",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to JSON input file",
				Required:    true,
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write results to this file instead of stdout",
				Destination: &outputPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, LoadConfig())
			log := newLogger()

			if modelPath == "" {
				return fmt.Errorf("--model is required")
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var inFile inputFile
			if err := json.Unmarshal(data, &inFile); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			builder := network.NewConfig(modelPath).BatchSize(uint32(batchSize))
			if topK > 0 {
				builder.TopK(uint32(topK))
			}
			cfg, err := builder.Build()
			if err != nil {
				return err
			}

			net, err := backend.Open(backendName, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = net.Close() }()
			log.Info("loaded model", "path", modelPath, "batch", cfg.BatchSize, "k", cfg.K.String())

			inputs := make([]network.Dataset, len(inFile))
			for i, in := range inFile {
				dim := inputDim(in.X, in.Y, in.Z).WithExamples(uint32(len(in.Values)))
				ds := netdata.NewDense(in.Name, dim)
				for ex, row := range in.Values {
					if err := ds.SetExample(ex, row); err != nil {
						return err
					}
				}
				inputs[i] = ds
			}

			outputs, err := net.PredictAlloc(inputs)
			if err != nil {
				return err
			}
			return writeResults(outputs, cfg.K, outputPath)
		},
	}
}

func inputDim(x, y, z uint32) network.Dim {
	switch {
	case z > 1:
		return network.Dim3(x, y, z)
	case y > 1:
		return network.Dim2(x, y)
	default:
		return network.Dim1(x)
	}
}

func writeResults(outputs []*network.OutputDataset, k network.KSelector, path string) error {
	results := make(outputFile, len(outputs))
	for i, out := range outputs {
		results[i].Name = out.Name()
		examples := int(out.Dim().Examples)
		if k.All() {
			results[i].Values = make([][]float32, examples)
			for ex := range examples {
				results[i].Values[ex] = out.ExampleValues(ex)
			}
		} else {
			results[i].Indices = make([][]uint32, examples)
			results[i].Scores = make([][]float32, examples)
			for ex := range examples {
				results[i].Indices[ex], results[i].Scores[ex] = out.TopK(ex)
			}
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
