package depthai

import "sync"

// SequenceGenerator hands out incrementing sequence numbers used to pair a
// request sent to the device with its reply
type SequenceGenerator struct {
	seq int64
	sync.Mutex
}

// NewSequenceGenerator returns a generator starting at 1
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Next returns the next sequence number
func (s *SequenceGenerator) Next() int64 {
	s.Lock()
	defer s.Unlock()
	s.seq++
	return s.seq
}
