package comm

// ValidPayloadLength reports whether n bytes fit in one frame.
func ValidPayloadLength(n int) bool {
	return n > 0 && n < MaxPayload
}

// Checksum is the 8-bit unsigned sum of p.
func Checksum(p []byte) (sum byte) {
	for _, b := range p {
		sum += b
	}
	return
}

// AppendFrame appends the encoded frame of payload to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if !ValidPayloadLength(len(payload)) {
		return dst, ErrPayloadLength
	}
	dst = append(dst, FrameStart, byte(len(payload)))
	dst = append(dst, payload...)
	return append(dst, Checksum(payload)), nil
}

// EncodeFrame returns the encoded frame of payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, len(payload)+3), payload)
}
