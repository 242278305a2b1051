// Package telemetry merges device health and IMU readings into poll results.
package telemetry

import (
	"github.com/swdee/go-depthai-lite"
)

// Source provides telemetry snapshots.  The values are opaque to the fusion
// pipeline and are merged into results verbatim
type Source interface {
	// SystemInfo returns the latest system information
	SystemInfo() (any, bool)
	// IMU returns the latest IMU reading
	IMU() (any, bool)
}

// MemorySnapshot is the used and total bytes of a memory region
type MemorySnapshot struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// SystemSnapshot is the JSON form of depthai.SystemInformation
type SystemSnapshot struct {
	DDRMemoryUsage     MemorySnapshot `json:"ddrMemoryUsage"`
	CMXMemoryUsage     MemorySnapshot `json:"cmxMemoryUsage"`
	LeonCSSMemoryUsage MemorySnapshot `json:"leonCssMemoryUsage"`
	LeonMSSMemoryUsage MemorySnapshot `json:"leonMssMemoryUsage"`
	LeonCSSCPUUsage    float32        `json:"leonCssCpuUsage"`
	LeonMSSCPUUsage    float32        `json:"leonMssCpuUsage"`
	ChipTemperature    TempSnapshot   `json:"chipTemperature"`
}

// TempSnapshot holds chip temperatures in degrees celsius
type TempSnapshot struct {
	Average float32 `json:"average"`
	CSS     float32 `json:"css"`
	MSS     float32 `json:"mss"`
	UPA     float32 `json:"upa"`
	DSS     float32 `json:"dss"`
}

// IMUSnapshot is the JSON form of a rotation vector reading
type IMUSnapshot struct {
	I        float32 `json:"i"`
	J        float32 `json:"j"`
	K        float32 `json:"k"`
	Real     float32 `json:"real"`
	Accuracy float32 `json:"accuracy"`
}

// NewSystemSnapshot converts a device SystemInformation message
func NewSystemSnapshot(s *depthai.SystemInformation) SystemSnapshot {

	mem := func(m depthai.MemoryInfo) MemorySnapshot {
		return MemorySnapshot{Used: m.Used, Total: m.Total}
	}

	return SystemSnapshot{
		DDRMemoryUsage:     mem(s.DDRMemoryUsage),
		CMXMemoryUsage:     mem(s.CMXMemoryUsage),
		LeonCSSMemoryUsage: mem(s.LeonCSSMemoryUsage),
		LeonMSSMemoryUsage: mem(s.LeonMSSMemoryUsage),
		LeonCSSCPUUsage:    s.LeonCSSCPUUsage.Average,
		LeonMSSCPUUsage:    s.LeonMSSCPUUsage.Average,
		ChipTemperature: TempSnapshot{
			Average: s.ChipTemperature.Average,
			CSS:     s.ChipTemperature.CSS,
			MSS:     s.ChipTemperature.MSS,
			UPA:     s.ChipTemperature.UPA,
			DSS:     s.ChipTemperature.DSS,
		},
	}
}

// QueueSource reads telemetry from the sysinfo and imu device streams.  The
// last snapshot seen on each stream is kept so a poll made between device
// updates still reports the most recent values.  It is not safe for
// concurrent use
type QueueSource struct {
	sysQueue depthai.OutputQueue
	imuQueue depthai.OutputQueue

	lastSys *SystemSnapshot
	lastIMU *IMUSnapshot
}

// NewQueueSource returns a source reading the session's telemetry streams.
// Streams absent from the pipeline are skipped
func NewQueueSource(sess *depthai.Session) *QueueSource {

	qs := &QueueSource{}

	if q, err := sess.OutputQueue(depthai.StreamSysInfo); err == nil {
		qs.sysQueue = q
	}

	if q, err := sess.OutputQueue(depthai.StreamIMU); err == nil {
		qs.imuQueue = q
	}

	return qs
}

// SystemInfo implements Source
func (q *QueueSource) SystemInfo() (any, bool) {

	if info, ok := depthai.Latest[*depthai.SystemInformation](q.sysQueue); ok {
		snap := NewSystemSnapshot(info)
		q.lastSys = &snap
	}

	if q.lastSys == nil {
		return nil, false
	}

	return *q.lastSys, true
}

// IMU implements Source, returning the last rotation vector of the newest
// IMU batch
func (q *QueueSource) IMU() (any, bool) {

	if data, ok := depthai.Latest[*depthai.IMUData](q.imuQueue); ok && len(data.Packets) > 0 {
		rv := data.Packets[len(data.Packets)-1]
		q.lastIMU = &IMUSnapshot{
			I:        rv.I,
			J:        rv.J,
			K:        rv.K,
			Real:     rv.Real,
			Accuracy: rv.Accuracy,
		}
	}

	if q.lastIMU == nil {
		return nil, false
	}

	return *q.lastIMU, true
}

// emptyObject serializes to {}
type emptyObject struct{}

// Snapshot is the merged telemetry of one poll
type Snapshot struct {
	// SysInfo is nil when not requested
	SysInfo any
	// IMU is nil when not requested
	IMU any
}

// Merge collects the requested telemetry from the source.  A requested value
// the source has never produced is reported as an empty object so the field
// is still present in the result
func Merge(src Source, wantSys, wantIMU bool) Snapshot {

	var snap Snapshot

	if wantSys {
		snap.SysInfo = emptyObject{}

		if src != nil {
			if v, ok := src.SystemInfo(); ok {
				snap.SysInfo = v
			}
		}
	}

	if wantIMU {
		snap.IMU = emptyObject{}

		if src != nil {
			if v, ok := src.IMU(); ok {
				snap.IMU = v
			}
		}
	}

	return snap
}
