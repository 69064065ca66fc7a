package lnf

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// File is an opened LNF container. Tensor views alias the underlying
// mapping, so they are valid only until Close.
type File struct {
	Data    []byte
	Header  Header
	Model   *Model
	payload []byte
	tensors map[string]TensorInfo
	mmapped bool
}

// Open maps an LNF file read-only and validates its structure. If mmap
// is unavailable, it falls back to ReadAt-based loading. The returned
// file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)

	// Prefer mmap where available for zero-copy tensor slices.
	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		lf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return lf, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates an LNF from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < headerSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	hdr, ok := decodeHeader(data)
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	modelEnd := hdr.ModelOffset + hdr.ModelSize
	if hdr.ModelOffset < headerSize || modelEnd < hdr.ModelOffset || modelEnd > uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if hdr.PayloadOffset < modelEnd || hdr.PayloadOffset > uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if hdr.PayloadOffset%4 != 0 {
		return nil, ErrCorruptFile
	}

	model, err := decodeModel(data[hdr.ModelOffset:modelEnd])
	if err != nil {
		return nil, err
	}

	payload := data[hdr.PayloadOffset:]
	tensors := make(map[string]TensorInfo, len(model.Weights))
	for _, ti := range model.Weights {
		if ti.Size != uint64(ti.Rows)*uint64(ti.Cols)*4 {
			return nil, fmt.Errorf("%w: tensor %q size %d does not match %dx%d float32",
				ErrCorruptFile, ti.Name, ti.Size, ti.Rows, ti.Cols)
		}
		end := ti.Offset + ti.Size
		if end < ti.Offset || end > uint64(len(payload)) {
			return nil, fmt.Errorf("%w: tensor %q out of payload bounds", ErrCorruptFile, ti.Name)
		}
		if ti.Offset%4 != 0 {
			return nil, fmt.Errorf("%w: tensor %q misaligned", ErrCorruptFile, ti.Name)
		}
		tensors[ti.Name] = ti
	}

	return &File{
		Data:    data,
		Header:  hdr,
		Model:   model,
		payload: payload,
		tensors: tensors,
		mmapped: mmapped,
	}, nil
}

// Tensor returns a zero-copy float32 view of the named tensor.
func (f *File) Tensor(name string) ([]float32, error) {
	ti, ok := f.tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	if ti.Size == 0 {
		return nil, nil
	}
	b := f.payload[ti.Offset : ti.Offset+ti.Size]
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4), nil
}

// Close releases the mapping, if any. Tensor views become invalid.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	data := f.Data
	f.Data = nil
	f.payload = nil
	if f.mmapped {
		return unix.Munmap(data)
	}
	return nil
}
