package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/latticeml/lattice/internal/netdata"
	"github.com/latticeml/lattice/internal/network"
)

// PredictionService turns API payloads into datasets, runs them through
// the network, and shapes the results back into payloads. All contract
// checking is the network's; the service only converts representations.
type PredictionService struct {
	provider NetworkProvider
	clock    func() time.Time
}

func NewPredictionService(provider NetworkProvider) *PredictionService {
	return &PredictionService{
		provider: provider,
		clock:    time.Now,
	}
}

func (s *PredictionService) CreatePrediction(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if len(req.Inputs) == 0 {
		return nil, newInvalidRequest("inputs are required")
	}

	resp := &PredictResponse{
		ID:        "pred_" + uuid.NewString(),
		Object:    "prediction",
		Model:     req.Model,
		CreatedAt: s.clock().Unix(),
	}

	err := s.provider.WithNetwork(ctx, req.Model, func(net *network.Network) error {
		cfg := net.Config()
		resp.BatchSize = cfg.BatchSize
		resp.K = cfg.K.K()

		inputs, err := buildInputs(req.Inputs)
		if err != nil {
			return err
		}
		outputs, err := net.PredictAlloc(inputs)
		if err != nil {
			return err
		}
		resp.Outputs = buildOutputs(outputs, cfg.K)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// buildInputs converts payloads into dense datasets. The example count
// is taken from the payload, not the network, so a row-count
// disagreement surfaces as the network's batch-size violation rather
// than being silently padded or truncated here.
func buildInputs(payloads []InputPayload) ([]network.Dataset, error) {
	inputs := make([]network.Dataset, len(payloads))
	for i, in := range payloads {
		dim, err := payloadDim(in)
		if err != nil {
			return nil, err
		}
		ds := netdata.NewDense(in.Name, dim)
		for ex, row := range in.Values {
			if err := ds.SetExample(ex, row); err != nil {
				return nil, newInvalidRequest(err.Error())
			}
		}
		inputs[i] = ds
	}
	return inputs, nil
}

func payloadDim(in InputPayload) (network.Dim, error) {
	if in.X == 0 {
		return network.Dim{}, newInvalidRequest(fmt.Sprintf("input %q: x is required", in.Name))
	}
	var d network.Dim
	switch {
	case in.Z > 1:
		d = network.Dim3(in.X, in.Y, in.Z)
	case in.Y > 1:
		d = network.Dim2(in.X, in.Y)
	default:
		d = network.Dim1(in.X)
	}
	return d.WithExamples(uint32(len(in.Values))), nil
}

func buildOutputs(outputs []*network.OutputDataset, k network.KSelector) []OutputPayload {
	payloads := make([]OutputPayload, len(outputs))
	for i, out := range outputs {
		d := out.Dim()
		p := OutputPayload{Name: out.Name(), X: d.X, Y: d.Y, Z: d.Z}
		examples := int(d.Examples)
		if k.All() {
			p.Values = make([][]float32, examples)
			for ex := range examples {
				p.Values[ex] = out.ExampleValues(ex)
			}
		} else {
			p.Indices = make([][]uint32, examples)
			p.Scores = make([][]float32, examples)
			for ex := range examples {
				p.Indices[ex], p.Scores[ex] = out.TopK(ex)
			}
		}
		payloads[i] = p
	}
	return payloads
}
