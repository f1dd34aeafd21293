package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/cryptobyte"

	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 1

	// DropMarker is the reserved length value a peer sends to drop the
	// connection.
	DropMarker = 0xff

	// MaxPayloadSize is the largest payload a single length byte can
	// describe without colliding with DropMarker.
	MaxPayloadSize = DropMarker - 1

	readChunkSize = 512
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the payload exceeds MaxPayloadSize.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty payload.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrHardDrop indicates the peer sent DropMarker.
	ErrHardDrop = errors.New("peer dropped connection")
)

// Frame is one complete payload received from the peer.
type Frame struct {
	Payload []byte
}

// Hex returns the payload as lower-case hex.
func (f Frame) Hex() string {
	return protocol.Decode(f.Payload)
}

// Opcode returns the leading payload byte as hex, or "" for an empty frame.
func (f Frame) Opcode() string {
	if len(f.Payload) == 0 {
		return ""
	}
	return protocol.Decode(f.Payload[:1])
}

// Size returns the frame size including the length prefix.
func (f Frame) Size() int {
	return FrameSize(len(f.Payload))
}

// EncodeFrame prefixes payload with its length byte.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrMessageEmpty
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), MaxPayloadSize)
	}
	b := cryptobyte.NewFixedBuilder(make([]byte, 0, FrameSize(len(payload))))
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(payload)
	})
	return b.Bytes()
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w  io.Writer
	mu sync.Mutex

	// Logging support (optional)
	logger log.Logger
	tag    Tag
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, tag Tag) {
	fw.logger = logger
	fw.tag = tag
}

// WriteFrame writes one frame with a single Write call.
// Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if fw.logger != nil {
		fw.logger.Log(fw.tag.frameEvent(payload, log.DirectionOut))
	}
	return nil
}

// FrameReader reassembles frames from an underlying reader. Bytes are
// read in chunks into a growable buffer; complete frames are split off
// the front and returned by value.
type FrameReader struct {
	r     io.Reader
	buf   []byte
	chunk [readChunkSize]byte
	err   error

	// Logging support (optional)
	logger log.Logger
	tag    Tag
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, tag Tag) {
	fr.logger = logger
	fr.tag = tag
}

// ReadFrame returns the next non-empty frame.
//
// It returns ErrHardDrop when the peer sends DropMarker, io.EOF when the
// stream ends between frames and ErrFrameTruncated when it ends inside
// one.
func (fr *FrameReader) ReadFrame() (Frame, error) {
	for {
		frame, ok, err := fr.next()
		if err != nil {
			if fr.logger != nil && errors.Is(err, ErrHardDrop) {
				fr.logger.Log(fr.tag.controlEvent(log.ControlMsgDrop, log.DirectionIn))
			}
			return Frame{}, err
		}
		if ok {
			if fr.logger != nil {
				fr.logger.Log(fr.tag.frameEvent(frame.Payload, log.DirectionIn))
			}
			return frame, nil
		}
		if fr.err != nil {
			return Frame{}, fr.readError()
		}

		n, err := fr.r.Read(fr.chunk[:])
		fr.buf = append(fr.buf, fr.chunk[:n]...)
		if err != nil {
			fr.err = err
		}
	}
}

// Buffered returns the number of bytes received but not yet returned.
func (fr *FrameReader) Buffered() int {
	return len(fr.buf)
}

func (fr *FrameReader) next() (Frame, bool, error) {
	for len(fr.buf) > 0 {
		if fr.buf[0] == DropMarker {
			fr.buf = fr.buf[:0]
			return Frame{}, false, ErrHardDrop
		}

		s := cryptobyte.String(fr.buf)
		var body cryptobyte.String
		if !s.ReadUint8LengthPrefixed(&body) {
			return Frame{}, false, nil
		}
		payload := append([]byte(nil), body...)
		fr.buf = append(fr.buf[:0], s...)
		if len(payload) == 0 {
			continue
		}
		return Frame{Payload: payload}, true, nil
	}
	return Frame{}, false, nil
}

func (fr *FrameReader) readError() error {
	if errors.Is(fr.err, io.EOF) {
		if len(fr.buf) > 0 {
			return fmt.Errorf("%w: %d bytes pending", ErrFrameTruncated, len(fr.buf))
		}
		return io.EOF
	}
	return fmt.Errorf("read frame: %w", fr.err)
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures logging for both reader and writer.
func (f *Framer) SetLogger(logger log.Logger, tag Tag) {
	f.FrameReader.SetLogger(logger, tag)
	f.FrameWriter.SetLogger(logger, tag)
}

// Tag carries the identifiers stamped on every event of one connection.
type Tag struct {
	ConnectionID string
	RemoteAddr   string
	Mode         log.Mode
	ThingID      string
}

func (t Tag) event(dir log.Direction, cat log.Category) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: t.ConnectionID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     cat,
		Mode:         t.Mode,
		RemoteAddr:   t.RemoteAddr,
		ThingID:      t.ThingID,
	}
}

func (t Tag) frameEvent(payload []byte, dir log.Direction) log.Event {
	e := t.event(dir, log.CategoryMessage)
	e.Frame = &log.FrameEvent{Size: FrameSize(len(payload)), Data: payload}
	return e
}

func (t Tag) controlEvent(typ log.ControlMsgType, dir log.Direction) log.Event {
	e := t.event(dir, log.CategoryControl)
	e.ControlMsg = &log.ControlMsgEvent{Type: typ}
	return e
}

func (t Tag) stateEvent(oldState, newState, reason string) log.Event {
	e := t.event(log.DirectionIn, log.CategoryState)
	e.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityConnection,
		OldState: oldState,
		NewState: newState,
		Reason:   reason,
	}
	return e
}
