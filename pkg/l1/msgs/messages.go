package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/framelink/pkg/framework"
	"github.com/robotalks/framelink/pkg/l0/comm"
	pb "github.com/robotalks/framelink/pkg/proto/framelink/v1"
)

// Type IDs of the link group.
const (
	LinkStatsTypeID     uint32 = TypeIDKindEvent | 0x00010001
	DeviceStatusTypeID  uint32 = TypeIDKindEvent | 0x00010002
	CommandResultTypeID uint32 = TypeIDKindEvent | 0x00010003
)

// LinkStats carries the host side link counters.
type LinkStats struct {
	pb.LinkStats
}

// NewLinkStats converts a counters snapshot.
func NewLinkStats(s comm.StatsSnapshot, unmatched uint64) *LinkStats {
	return &LinkStats{LinkStats: pb.LinkStats{
		RxBytes:        s.RxBytes,
		OverflowDrops:  s.OverflowDrops,
		BadLengthDrops: s.BadLengthDrops,
		ChecksumDrops:  s.ChecksumDrops,
		FramesReceived: s.FramesReceived,
		FramesSent:     s.FramesSent,
		SendRejected:   s.SendRejected,
		SendErrors:     s.SendErrors,
		Unmatched:      unmatched,
	}}
}

// NewMessage implements SerializableMessage.
func (m *LinkStats) NewMessage() fx.Message { return &LinkStats{} }

// TypeID implements SerializableMessage.
func (m *LinkStats) TypeID() uint32 { return LinkStatsTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStats) Serializable() proto.Message { return &m.LinkStats }

// DeviceStatus reports device liveness.
type DeviceStatus struct {
	pb.DeviceStatus
}

// NewMessage implements SerializableMessage.
func (m *DeviceStatus) NewMessage() fx.Message { return &DeviceStatus{} }

// TypeID implements SerializableMessage.
func (m *DeviceStatus) TypeID() uint32 { return DeviceStatusTypeID }

// Serializable implements SerializableMessage.
func (m *DeviceStatus) Serializable() proto.Message { return &m.DeviceStatus }

// LastSeen converts LastSeenUnixMs.
func (m *DeviceStatus) LastSeen() time.Time {
	if m.LastSeenUnixMs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.LastSeenUnixMs)
}

// CommandResult reports one command forwarded to the device.
type CommandResult struct {
	pb.CommandResult
}

// NewCommandResult creates a CommandResult.
func NewCommandResult(source, cmd, resp string, err error, latency time.Duration) *CommandResult {
	m := &CommandResult{CommandResult: pb.CommandResult{
		Command:   cmd,
		Response:  resp,
		LatencyUs: latency.Microseconds(),
		Source:    source,
	}}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

// NewMessage implements SerializableMessage.
func (m *CommandResult) NewMessage() fx.Message { return &CommandResult{} }

// TypeID implements SerializableMessage.
func (m *CommandResult) TypeID() uint32 { return CommandResultTypeID }

// Serializable implements SerializableMessage.
func (m *CommandResult) Serializable() proto.Message { return &m.CommandResult }
