package hostdevice

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Pool holds several instances of the same network so frames can be
// inferenced concurrently.  A gocv.Net is not safe for concurrent use, each
// instance is handed to one caller at a time
type Pool struct {
	nets  chan *gocv.Net
	size  int
	close sync.Once
}

// NewPool loads the model file size times
func NewPool(size int, modelFile string) (*Pool, error) {

	if size < 1 {
		size = 1
	}

	p := &Pool{
		nets: make(chan *gocv.Net, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		net := gocv.ReadNet(modelFile, "")

		if net.Empty() {
			_ = net.Close()
			// close any instances that were loaded before the failure
			p.Close()
			return nil, fmt.Errorf("error loading network %s", modelFile)
		}

		p.Return(&net)
	}

	return p, nil
}

// Get a network from the pool, blocks until one is free
func (p *Pool) Get() *gocv.Net {
	return <-p.nets
}

// Return a network to the pool
func (p *Pool) Return(net *gocv.Net) {
	select {
	case p.nets <- net:
	default:
		// pool is full or closed
	}
}

// Size of the pool
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all networks in it
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.nets)

		for next := range p.nets {
			_ = next.Close()
		}
	})
}

// forward runs a single blob through a network from the pool and returns a
// copy of its first output as float32
func (p *Pool) forward(blob gocv.Mat) ([]float32, error) {

	net := p.Get()
	defer p.Return(net)

	if err := net.SetInput(blob, ""); err != nil {
		return nil, fmt.Errorf("error setting network input: %w", err)
	}

	out := net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading network output: %w", err)
	}

	res := make([]float32, len(data))
	copy(res, data)

	return res, nil
}
