package depthai

import (
	"fmt"
	"sync/atomic"
)

// MemDevice is a Device backed by in-memory queues.  It is used by the host
// emulation and by tests to feed the fusion pipeline with known data
type MemDevice struct {
	id      string
	running atomic.Bool
	outputs map[string]*Queue
	inputs  map[string]*Queue
}

// NewMemDevice creates queues for every stream in the pipeline config.
// Output queues hold a single message and overwrite on publish, the second
// stage queues are blocking so no request or reply is lost
func NewMemDevice(id string, cfg PipelineConfig) *MemDevice {

	d := &MemDevice{
		id:      id,
		outputs: make(map[string]*Queue),
		inputs:  make(map[string]*Queue),
	}

	for _, name := range cfg.Streams() {
		switch name {
		case StreamStage2In:
			d.inputs[name] = NewQueue(name, 1, true)
		case StreamStage2Out:
			d.outputs[name] = NewQueue(name, 1, true)
		default:
			d.outputs[name] = NewQueue(name, 1, false)
		}
	}

	return d
}

// ID implements Device
func (d *MemDevice) ID() string {
	return d.id
}

// IsRunning implements Device
func (d *MemDevice) IsRunning() bool {
	return d.running.Load()
}

// SetRunning changes the running state of the device
func (d *MemDevice) SetRunning(v bool) {
	d.running.Store(v)
}

// OutputQueue implements Device
func (d *MemDevice) OutputQueue(name string) (OutputQueue, error) {

	q, ok := d.outputs[name]

	if !ok {
		return nil, fmt.Errorf("%w: output %s", ErrUnknownStream, name)
	}

	return q, nil
}

// InputQueue implements Device
func (d *MemDevice) InputQueue(name string) (InputQueue, error) {

	q, ok := d.inputs[name]

	if !ok {
		return nil, fmt.Errorf("%w: input %s", ErrUnknownStream, name)
	}

	return q, nil
}

// Output returns the concrete queue so producers can publish to it
func (d *MemDevice) Output(name string) (*Queue, error) {

	q, ok := d.outputs[name]

	if !ok {
		return nil, fmt.Errorf("%w: output %s", ErrUnknownStream, name)
	}

	return q, nil
}

// Input returns the concrete queue so the device side can consume from it
func (d *MemDevice) Input(name string) (*Queue, error) {

	q, ok := d.inputs[name]

	if !ok {
		return nil, fmt.Errorf("%w: input %s", ErrUnknownStream, name)
	}

	return q, nil
}

// Close closes all queues, releasing any blocked readers
func (d *MemDevice) Close() {

	d.running.Store(false)

	for _, q := range d.outputs {
		q.Close()
	}

	for _, q := range d.inputs {
		q.Close()
	}
}
