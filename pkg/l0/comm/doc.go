// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between L0 firmware and its host over a
// point-to-point byte stream (e.g. serial port at 115200 baud).
//
// Every frame is
//
//	[0xAA][length][payload: length bytes][checksum]
//
// where 0 < length < MaxPayload and checksum is the 8-bit sum of the
// payload bytes. The start marker is not escaped: a marker byte showing up
// inside a frame may cost the frame, and the receiver recovers by
// waiting in Idle for the next marker. Malformed frames are dropped
// silently and never answered.
//
// Receive path on the firmware side:
//
//	receive notification -> ByteQueue.Enqueue   (receiving context)
//	ByteQueue.Dequeue -> Parser.Parse           (main loop)
//
// Transmit path: Emitter.Send writes a whole frame through a blocking
// Transmitter.
