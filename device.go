package depthai

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoDevice is returned when no device is available for a session
	ErrNoDevice = errors.New("no device")
	// ErrDeviceNotRunning is returned when the device exists but its
	// pipeline has not been started or has stopped
	ErrDeviceNotRunning = errors.New("device not running")
)

// Device is a running device pipeline exposed as named queues.  Device
// discovery, pipeline construction and lifecycle belong to the Device
// implementation, the fusion code only reads and writes its queues
type Device interface {
	// ID returns the device identifier, eg: MX ID
	ID() string
	// IsRunning reports if the pipeline is started
	IsRunning() bool
	// OutputQueue returns the named device to host stream
	OutputQueue(name string) (OutputQueue, error)
	// InputQueue returns the named host to device stream
	InputQueue(name string) (InputQueue, error)
}

// Session binds a Device to the configuration its pipeline was built with.
// A Session is not safe for concurrent polling, callers must make at most
// one poll per session at a time
type Session struct {
	// index is the device number the session is registered under
	index int
	// id is a unique identifier of the session used in logs
	id uuid.UUID
	// device is the running pipeline, may be nil
	device Device
	// config used to build the pipeline
	config PipelineConfig
	// seq pairs second stage requests with their replies
	seq *SequenceGenerator
	log *zap.Logger
}

// SessionOption configures optional Session settings
type SessionOption func(*Session)

// WithLogger sets the logger used by the session
func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// NewSession returns a session for the device at the given index
func NewSession(index int, device Device, cfg PipelineConfig,
	opts ...SessionOption) *Session {

	s := &Session{
		index:  index,
		id:     uuid.New(),
		device: device,
		config: cfg,
		seq:    NewSequenceGenerator(),
		log:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	deviceID := ""

	if device != nil {
		deviceID = device.ID()
	}

	s.log = s.log.With(zap.Int("device", index), zap.String("session", s.id.String()),
		zap.String("mxid", deviceID))

	return s
}

// Index returns the device number of the session
func (s *Session) Index() int {
	return s.index
}

// ID returns the unique session identifier
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Device returns the session's device
func (s *Session) Device() Device {
	return s.device
}

// Config returns the pipeline configuration
func (s *Session) Config() PipelineConfig {
	return s.config
}

// Logger returns the session logger
func (s *Session) Logger() *zap.Logger {
	return s.log
}

// Sequence returns the session's request sequence generator
func (s *Session) Sequence() *SequenceGenerator {
	return s.seq
}

// Check returns ErrNoDevice or ErrDeviceNotRunning if the session can not be
// polled
func (s *Session) Check() error {

	if s == nil || s.device == nil {
		return ErrNoDevice
	}

	if !s.device.IsRunning() {
		return ErrDeviceNotRunning
	}

	return nil
}

// HasStream reports if the session's pipeline exposes the named stream
func (s *Session) HasStream(name string) bool {
	return s.config.HasStream(name)
}

// OutputQueue returns the named output queue if the pipeline has it
func (s *Session) OutputQueue(name string) (OutputQueue, error) {

	if !s.HasStream(name) {
		return nil, fmt.Errorf("%w: %s not configured in pipeline", ErrUnknownStream, name)
	}

	return s.device.OutputQueue(name)
}

// InputQueue returns the named input queue if the pipeline has it
func (s *Session) InputQueue(name string) (InputQueue, error) {

	if !s.HasStream(name) {
		return nil, fmt.Errorf("%w: %s not configured in pipeline", ErrUnknownStream, name)
	}

	return s.device.InputQueue(name)
}

// Registry holds the sessions of all opened devices keyed by device number
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]*Session
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int]*Session),
	}
}

// Add registers a session under its index, replacing any existing session
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Index()] = s
}

// Remove unregisters the session at the given index
func (r *Registry) Remove(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, index)
}

// Get returns the session at the given index
func (r *Registry) Get(index int) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[index]
	return s, ok
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
