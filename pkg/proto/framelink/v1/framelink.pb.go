// Source: framelink.proto

package v1

import (
	"github.com/golang/protobuf/proto"
)

// Typed is the envelope published on the bridge topics.
type Typed struct {
	TypeId  uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// LinkStats are the link counters of one side.
type LinkStats struct {
	RxBytes        uint64 `protobuf:"varint,1,opt,name=rx_bytes,json=rxBytes,proto3" json:"rx_bytes,omitempty"`
	OverflowDrops  uint64 `protobuf:"varint,2,opt,name=overflow_drops,json=overflowDrops,proto3" json:"overflow_drops,omitempty"`
	BadLengthDrops uint64 `protobuf:"varint,3,opt,name=bad_length_drops,json=badLengthDrops,proto3" json:"bad_length_drops,omitempty"`
	ChecksumDrops  uint64 `protobuf:"varint,4,opt,name=checksum_drops,json=checksumDrops,proto3" json:"checksum_drops,omitempty"`
	FramesReceived uint64 `protobuf:"varint,5,opt,name=frames_received,json=framesReceived,proto3" json:"frames_received,omitempty"`
	FramesSent     uint64 `protobuf:"varint,6,opt,name=frames_sent,json=framesSent,proto3" json:"frames_sent,omitempty"`
	SendRejected   uint64 `protobuf:"varint,7,opt,name=send_rejected,json=sendRejected,proto3" json:"send_rejected,omitempty"`
	SendErrors     uint64 `protobuf:"varint,8,opt,name=send_errors,json=sendErrors,proto3" json:"send_errors,omitempty"`
	Unmatched      uint64 `protobuf:"varint,9,opt,name=unmatched,proto3" json:"unmatched,omitempty"`
}

func (m *LinkStats) Reset()         { *m = LinkStats{} }
func (m *LinkStats) String() string { return proto.CompactTextString(m) }
func (*LinkStats) ProtoMessage()    {}

// DeviceStatus is the liveness of the device as seen by the bridge.
type DeviceStatus struct {
	Online              bool   `protobuf:"varint,1,opt,name=online,proto3" json:"online,omitempty"`
	LastSeenUnixMs      int64  `protobuf:"varint,2,opt,name=last_seen_unix_ms,json=lastSeenUnixMs,proto3" json:"last_seen_unix_ms,omitempty"`
	RttUs               int64  `protobuf:"varint,3,opt,name=rtt_us,json=rttUs,proto3" json:"rtt_us,omitempty"`
	ConsecutiveFailures uint32 `protobuf:"varint,4,opt,name=consecutive_failures,json=consecutiveFailures,proto3" json:"consecutive_failures,omitempty"`
}

func (m *DeviceStatus) Reset()         { *m = DeviceStatus{} }
func (m *DeviceStatus) String() string { return proto.CompactTextString(m) }
func (*DeviceStatus) ProtoMessage()    {}

// CommandResult reports one forwarded command.
type CommandResult struct {
	Command   string `protobuf:"bytes,1,opt,name=command,proto3" json:"command,omitempty"`
	Response  string `protobuf:"bytes,2,opt,name=response,proto3" json:"response,omitempty"`
	Error     string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	LatencyUs int64  `protobuf:"varint,4,opt,name=latency_us,json=latencyUs,proto3" json:"latency_us,omitempty"`
	Source    string `protobuf:"bytes,5,opt,name=source,proto3" json:"source,omitempty"`
}

func (m *CommandResult) Reset()         { *m = CommandResult{} }
func (m *CommandResult) String() string { return proto.CompactTextString(m) }
func (*CommandResult) ProtoMessage()    {}
