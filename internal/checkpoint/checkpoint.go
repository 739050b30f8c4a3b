package checkpoint

import (
	"archive/tar"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"sort"
)

var (
	ErrShapeMismatch    = errors.New("tensor shape mismatch")
	ErrMissingTensor    = errors.New("tensor missing from checkpoint")
	ErrUnexpectedTensor = errors.New("unexpected tensor in checkpoint")
)

const (
	manifestName = "checkpoint.json"
	tensorDir    = "tensors"
	dtypeFloat32 = "float32"
)

// #region types
// Tensor is a dense row-major float tensor.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor allocates a zero tensor of the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// At returns element (i, j) of a 2-D tensor.
func (t *Tensor) At(i, j int) float64 {
	return t.Data[i*t.Shape[1]+j]
}

// Row returns row i of a 2-D tensor without copying.
func (t *Tensor) Row(i int) []float64 {
	cols := t.Shape[1]
	return t.Data[i*cols : (i+1)*cols]
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Checkpoint is a serialized snapshot of trained model parameters.
type Checkpoint struct {
	Epoch     int
	StateDict map[string]*Tensor
}

// Restorable is anything exposing its parameters by name.
type Restorable interface {
	StateDict() map[string]*Tensor
}

type manifest struct {
	Epoch   int             `json:"epoch"`
	Tensors []tensorEntry   `json:"tensors"`
	Optim   json.RawMessage `json:"optim_dict,omitempty"`
}

type tensorEntry struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	DType string `json:"dtype"`
}

// #endregion types

// #region save
// Save writes ckpt as a tar archive: a json manifest followed by one
// little-endian float32 entry per tensor.
func Save(filename string, ckpt *Checkpoint) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create checkpoint %s: %w", filename, err)
	}
	defer f.Close()

	names := make([]string, 0, len(ckpt.StateDict))
	for name := range ckpt.StateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	m := manifest{Epoch: ckpt.Epoch}
	for _, name := range names {
		m.Tensors = append(m.Tensors, tensorEntry{Name: name, Shape: ckpt.StateDict[name].Shape, DType: dtypeFloat32})
	}
	mdata, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tw := tar.NewWriter(f)
	if err := writeEntry(tw, manifestName, mdata); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeEntry(tw, path.Join(tensorDir, name), encodeTensor(ckpt.StateDict[name])); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close checkpoint %s: %w", filename, err)
	}
	return f.Close()
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// #endregion save

// #region load
// Load reads a checkpoint archive written by Save.
func Load(filename string) (*Checkpoint, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %s: %w", filename, err)
	}
	defer f.Close()

	var m *manifest
	blobs := make(map[string][]byte)
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", filename, err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", hdr.Name, err)
		}
		if hdr.Name == manifestName {
			m = &manifest{}
			if err := json.Unmarshal(data, m); err != nil {
				return nil, fmt.Errorf("parse manifest: %w", err)
			}
			continue
		}
		blobs[hdr.Name] = data
	}
	if m == nil {
		return nil, fmt.Errorf("checkpoint %s: no %s entry", filename, manifestName)
	}

	ckpt := &Checkpoint{Epoch: m.Epoch, StateDict: make(map[string]*Tensor, len(m.Tensors))}
	for _, e := range m.Tensors {
		if e.DType != dtypeFloat32 {
			return nil, fmt.Errorf("tensor %s: unsupported dtype %q", e.Name, e.DType)
		}
		blob, ok := blobs[path.Join(tensorDir, e.Name)]
		if !ok {
			return nil, fmt.Errorf("tensor %s: %w", e.Name, ErrMissingTensor)
		}
		t, err := decodeTensor(e.Shape, blob)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", e.Name, err)
		}
		ckpt.StateDict[e.Name] = t
	}
	return ckpt, nil
}

// Restore loads the checkpoint at filename into model. Every model tensor
// must be present with an identical shape, and the checkpoint must not carry
// tensors the model does not know.
func Restore(filename string, model Restorable) (*Checkpoint, error) {
	ckpt, err := Load(filename)
	if err != nil {
		return nil, err
	}
	dict := model.StateDict()
	for name, dst := range dict {
		src, ok := ckpt.StateDict[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingTensor)
		}
		if !sameShape(src.Shape, dst.Shape) {
			return nil, fmt.Errorf("%s: %w: checkpoint %v, model %v", name, ErrShapeMismatch, src.Shape, dst.Shape)
		}
		copy(dst.Data, src.Data)
	}
	for name := range ckpt.StateDict {
		if _, ok := dict[name]; !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrUnexpectedTensor)
		}
	}
	return ckpt, nil
}

// #endregion load

// #region tensor-encoding
func encodeTensor(t *Tensor) []byte {
	buf := make([]byte, len(t.Data)*4)
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// decodeTensor checks shape against the blob length before allocating.
func decodeTensor(shape []int, b []byte) (*Tensor, error) {
	count := len(b) / 4
	n := 1
	for _, d := range shape {
		if d <= 0 || n > count/d {
			return nil, fmt.Errorf("%w: %d bytes for shape %v", ErrShapeMismatch, len(b), shape)
		}
		n *= d
	}
	if len(b)%4 != 0 || n != count {
		return nil, fmt.Errorf("%w: %d bytes for shape %v", ErrShapeMismatch, len(b), shape)
	}
	t := NewTensor(shape...)
	for i := range t.Data {
		t.Data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return t, nil
}

// #endregion tensor-encoding
