package depthai

import (
	"encoding/binary"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// TensorLayer is a named output layer of a neural network, stored as little
// endian IEEE 754 half precision floats as the device transfers them
type TensorLayer struct {
	Name string
	Fp16 []byte
}

// Float32 converts the layer's half precision buffer to float32.  A trailing
// odd byte is ignored
func (l TensorLayer) Float32() []float32 {

	n := len(l.Fp16) / 2
	out := make([]float32, n)

	for i := 0; i < n; i++ {
		out[i] = f16LookupTable[binary.LittleEndian.Uint16(l.Fp16[i*2:])]
	}

	return out
}

// NNData is the output of a neural network node on the device
type NNData struct {
	Layers []TensorLayer
	Seq    int64
}

// SequenceNum implements Message
func (n *NNData) SequenceNum() int64 {
	return n.Seq
}

// FirstLayerFp16 returns the first output layer converted to float32, or an
// empty slice if the network produced no layers
func (n *NNData) FirstLayerFp16() []float32 {

	if len(n.Layers) == 0 {
		return []float32{}
	}

	return n.Layers[0].Float32()
}

// EncodeFp16 converts float32 values into a little endian half precision
// buffer
func EncodeFp16(vals []float32) []byte {

	buf := make([]byte, len(vals)*2)

	for i, v := range vals {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}

	return buf
}

// NewNNDataFp16 returns NNData with a single layer holding the given values
func NewNNDataFp16(seq int64, layerName string, vals []float32) *NNData {
	return &NNData{
		Layers: []TensorLayer{{Name: layerName, Fp16: EncodeFp16(vals)}},
		Seq:    seq,
	}
}
