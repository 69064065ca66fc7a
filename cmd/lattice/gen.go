package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/urfave/cli/v3"

	"github.com/latticeml/lattice/pkg/lnf"
)

// genCmd writes a model with seeded random weights, mainly for smoke
// testing the predict and serve paths without a trained network.
func genCmd() *cli.Command {
	var (
		outPath    string
		name       string
		inputSize  int64
		hiddenSize int64
		outputSize int64
		seed       int64
	)

	return &cli.Command{
		Name:  "gen",
		Usage: "Generate a demo .lnf model with random weights",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path of the .lnf file to write",
				Required:    true,
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "model name stored in the header",
				Value:       "demo",
				Destination: &name,
			},
			&cli.Int64Flag{
				Name:        "input-size",
				Usage:       "input layer width",
				Value:       16,
				Destination: &inputSize,
			},
			&cli.Int64Flag{
				Name:        "hidden-size",
				Usage:       "hidden layer width (0 for none)",
				Value:       32,
				Destination: &hiddenSize,
			},
			&cli.Int64Flag{
				Name:        "output-size",
				Usage:       "output layer width",
				Value:       8,
				Destination: &outputSize,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       1,
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if inputSize < 1 || outputSize < 1 {
				return fmt.Errorf("input-size and output-size must be positive")
			}

			model := &lnf.Model{Name: name}
			model.Layers = append(model.Layers, lnf.LayerInfo{
				Name: "input", DatasetName: "input", Kind: lnf.KindInput, X: uint32(inputSize),
			})

			rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
			var tensors []lnf.Tensor
			prev := uint32(inputSize)
			if hiddenSize > 0 {
				model.Layers = append(model.Layers, lnf.LayerInfo{
					Name: "hidden", Kind: lnf.KindHidden, X: uint32(hiddenSize), Activation: lnf.ActReLU,
				})
				tensors = append(tensors, randTensor(rng, "hidden", prev, uint32(hiddenSize))...)
				prev = uint32(hiddenSize)
			}
			model.Layers = append(model.Layers, lnf.LayerInfo{
				Name: "output", DatasetName: "output", Kind: lnf.KindOutput,
				X: uint32(outputSize), Activation: lnf.ActIdentity,
			})
			tensors = append(tensors, randTensor(rng, "output", prev, uint32(outputSize))...)

			if err := lnf.Create(outPath, model, tensors); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d -> %d)\n", outPath, inputSize, outputSize)
			return nil
		},
	}
}

func randTensor(rng *rand.Rand, layer string, in, out uint32) []lnf.Tensor {
	w := make([]float32, int(in)*int(out))
	for i := range w {
		w[i] = float32(rng.NormFloat64() * 0.1)
	}
	b := make([]float32, out)
	return []lnf.Tensor{
		{Name: layer + ".w", Rows: in, Cols: out, Data: w},
		{Name: layer + ".b", Rows: 1, Cols: out, Data: b},
	}
}
