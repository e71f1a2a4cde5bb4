package comm

const (
	// FrameStart marks the beginning of a frame.
	FrameStart byte = 0xAA
	// MaxPayload is the payload ceiling: valid lengths are 1..MaxPayload-1.
	MaxPayload = 128
)

// ParserState is the state of the framing state machine.
type ParserState int

const (
	// StateIdle waits for FrameStart, ignoring everything else.
	StateIdle ParserState = iota
	// StateLengthExpected waits for the length byte.
	StateLengthExpected
	// StatePayloadAccumulating collects payload bytes.
	StatePayloadAccumulating
	// StateChecksumExpected waits for the checksum byte.
	StateChecksumExpected
)

// String implements fmt.Stringer.
func (s ParserState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLengthExpected:
		return "length"
	case StatePayloadAccumulating:
		return "payload"
	case StateChecksumExpected:
		return "checksum"
	}
	return "invalid"
}

// DropReason tells why received bytes were discarded.
type DropReason int

const (
	// DropNone means nothing was dropped.
	DropNone DropReason = iota
	// DropOverflow is a byte lost because the receive queue was full.
	DropOverflow
	// DropBadLength is a frame whose length byte is 0 or >= MaxPayload.
	DropBadLength
	// DropChecksum is a fully received frame with a wrong checksum.
	DropChecksum
)

// String implements fmt.Stringer.
func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropOverflow:
		return "overflow"
	case DropBadLength:
		return "bad-length"
	case DropChecksum:
		return "checksum"
	}
	return "invalid"
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	// State is the parser state after the byte.
	State ParserState
	// Payload is set when the byte completed a valid frame. It refers to
	// the parser's buffer and is only valid until the next Parse call.
	Payload []byte
	// Drop is set when the byte caused a frame to be discarded.
	Drop DropReason
}

// Parser reassembles frames one byte at a time. The zero value is ready
// to use. A Parser is owned by a single goroutine.
type Parser struct {
	state    ParserState
	length   byte
	checksum byte
	index    int
	buf      [MaxPayload]byte
}

// State gets the current state.
func (p *Parser) State() ParserState {
	return p.state
}

// Reset discards any partial frame.
func (p *Parser) Reset() {
	p.state = StateIdle
	p.length, p.checksum, p.index = 0, 0, 0
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case StateIdle:
		if b == FrameStart {
			p.state = StateLengthExpected
		}
	case StateLengthExpected:
		if !ValidPayloadLength(int(b)) {
			p.state, pr.Drop = StateIdle, DropBadLength
			break
		}
		p.length, p.checksum, p.index = b, 0, 0
		p.state = StatePayloadAccumulating
	case StatePayloadAccumulating:
		p.buf[p.index] = b
		p.index++
		p.checksum += b
		if p.index >= int(p.length) {
			p.state = StateChecksumExpected
		}
	case StateChecksumExpected:
		if b == p.checksum {
			pr.Payload = p.buf[:p.length]
		} else {
			pr.Drop = DropChecksum
		}
		p.state = StateIdle
	default:
		p.Reset()
	}
	pr.State = p.state
	return
}
