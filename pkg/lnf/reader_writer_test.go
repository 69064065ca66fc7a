package lnf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testModel() *Model {
	return &Model{
		Name: "tiny",
		Layers: []LayerInfo{
			{Name: "in", DatasetName: "in_data", Kind: KindInput, X: 2},
			{Name: "out", DatasetName: "out_data", Kind: KindOutput, X: 3, Activation: ActIdentity},
		},
	}
}

func testTensors() []Tensor {
	return []Tensor{
		{Name: "out.w", Rows: 2, Cols: 3, Data: []float32{1, 2, 3, 4, 5, 6}},
		{Name: "out.b", Rows: 1, Cols: 3, Data: []float32{0.5, -0.5, 0}},
	}
}

func writeTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiny.lnf")
	if err := Create(path, testModel(), testTensors()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	f, err := Open(writeTestFile(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	if f.Model.Name != "tiny" {
		t.Fatalf("model name = %q, want \"tiny\"", f.Model.Name)
	}
	if len(f.Model.Layers) != 2 || f.Model.Layers[1].Kind != KindOutput {
		t.Fatalf("layers = %+v", f.Model.Layers)
	}

	w, err := f.Tensor("out.w")
	if err != nil {
		t.Fatalf("Tensor(out.w) error = %v", err)
	}
	if len(w) != 6 || w[0] != 1 || w[5] != 6 {
		t.Fatalf("out.w = %v", w)
	}
	b, err := f.Tensor("out.b")
	if err != nil {
		t.Fatalf("Tensor(out.b) error = %v", err)
	}
	if len(b) != 3 || b[0] != 0.5 || b[1] != -0.5 {
		t.Fatalf("out.b = %v", b)
	}

	if _, err := f.Tensor("missing"); !errors.Is(err, ErrTensorNotFound) {
		t.Fatalf("Tensor(missing) error = %v, want ErrTensorNotFound", err)
	}
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t)
	osf, err := os.Open(path)
	if err != nil {
		t.Fatalf("os.Open() error = %v", err)
	}
	defer func() { _ = osf.Close() }()
	st, err := osf.Stat()
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	f, err := OpenReaderAt(osf, st.Size())
	if err != nil {
		t.Fatalf("OpenReaderAt() error = %v", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Tensor("out.w"); err != nil {
		t.Fatalf("Tensor() error = %v", err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	data[0] = 'X'
	bad := filepath.Join(t.TempDir(), "bad.lnf")
	if err := os.WriteFile(bad, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Open(bad); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("Open() error = %v, want ErrInvalidMagic", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	trunc := filepath.Join(t.TempDir(), "trunc.lnf")
	if err := os.WriteFile(trunc, data[:len(data)-8], 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Open(trunc); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("Open() error = %v, want ErrCorruptFile", err)
	}
}

func TestWriteRejectsMisshapenTensor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.lnf")
	bad := []Tensor{{Name: "w", Rows: 2, Cols: 2, Data: []float32{1}}}
	if err := Create(path, testModel(), bad); err == nil {
		t.Fatal("Create() with misshapen tensor: expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Create() left a partial file behind")
	}
}
