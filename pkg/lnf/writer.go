package lnf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// Tensor is a named float32 matrix to be stored in the payload.
type Tensor struct {
	Name string
	Rows uint32
	Cols uint32
	Data []float32
}

// Create writes model and tensors to a new LNF file at path.
func Create(path string, model *Model, tensors []Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, model, tensors); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Write serializes model and tensors to f. The model's Weights field is
// replaced with the computed tensor index; any existing entries are
// discarded.
func Write(f *os.File, model *Model, tensors []Tensor) error {
	if model == nil {
		return errors.New("lnf: nil model")
	}

	// Lay out the payload and build the tensor index.
	infos := make([]TensorInfo, len(tensors))
	var payloadSize uint64
	for i, tr := range tensors {
		if tr.Name == "" {
			return fmt.Errorf("lnf: tensor %d has no name", i)
		}
		want := int(tr.Rows) * int(tr.Cols)
		if len(tr.Data) != want {
			return fmt.Errorf("lnf: tensor %q has %d values, want %dx%d=%d",
				tr.Name, len(tr.Data), tr.Rows, tr.Cols, want)
		}
		size := uint64(want) * 4
		infos[i] = TensorInfo{
			Name:   tr.Name,
			Rows:   tr.Rows,
			Cols:   tr.Cols,
			Offset: payloadSize,
			Size:   size,
		}
		payloadSize += size
	}

	indexed := *model
	indexed.Weights = infos
	modelJSON, err := encodeModel(&indexed)
	if err != nil {
		return fmt.Errorf("lnf: encode model: %w", err)
	}

	modelOffset := uint64(headerSize)
	payloadOffset := alignUp(modelOffset+uint64(len(modelJSON)), payloadAlign)
	hdr := Header{
		Major:         CurrentMajor,
		Minor:         CurrentMinor,
		ModelOffset:   modelOffset,
		ModelSize:     uint64(len(modelJSON)),
		PayloadOffset: payloadOffset,
		FileSize:      payloadOffset + payloadSize,
	}
	copy(hdr.Magic[:], MagicLNF)

	w := bufio.NewWriter(f)
	if _, err := w.Write(encodeHeader(hdr)); err != nil {
		return err
	}
	if _, err := w.Write(modelJSON); err != nil {
		return err
	}
	if err := pad(w, int(payloadOffset-modelOffset)-len(modelJSON)); err != nil {
		return err
	}
	var scratch [4]byte
	for _, tr := range tensors {
		for _, v := range tr.Data {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			if _, err := w.Write(scratch[:]); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func pad(w *bufio.Writer, n int) error {
	for range n {
		if err := w.WriteByte(0); err != nil {
			return err
		}
	}
	return nil
}

func alignUp(v, align uint64) uint64 {
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + align - rem
}
