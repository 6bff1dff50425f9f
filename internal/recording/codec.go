package recording

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Wire layout, all integers little-endian:
//
//	header:  "LODS" | u16 version | u16 len | app id
//	record:  u32 body length | body
//	body:    u8 kind | u8 flags | u16 len | path | u16 len | timeline | i64 sequence | payload
//
// Mesh3D payload is u32 vertex count, u32 normal count, then xyz float32
// triples; Transform3D is three float32; ViewCoordinates is three bytes.

const (
	magic         = "LODS"
	formatVersion = 1

	flagStatic = 1 << 0

	// MaxRecordSize bounds a single decoded record.
	MaxRecordSize = 1 << 30
	// MaxStringLen is the longest path, timeline or app id a u16 prefix holds.
	MaxStringLen = 1<<16 - 1
)

var (
	ErrBadMagic           = errors.New("not a recording: bad magic")
	ErrUnsupportedVersion = errors.New("unsupported recording version")
	ErrUnknownPayload     = errors.New("unknown payload kind")
	ErrRecordTooLarge     = errors.New("record too large")
	ErrMalformedRecord    = errors.New("malformed record")
)

// EncodeHeader returns the stream header for appID.
func EncodeHeader(appID string) []byte {
	b := make([]byte, 0, len(magic)+4+len(appID))
	b = append(b, magic...)
	b = binary.LittleEndian.AppendUint16(b, formatVersion)
	return appendString(b, appID)
}

// DecodeHeader parses a header produced by EncodeHeader.
func DecodeHeader(b []byte) (appID string, err error) {
	c := cursor{buf: b}
	if m := c.bytes(len(magic)); c.err != nil || string(m) != magic {
		return "", ErrBadMagic
	}
	if v := c.u16(); c.err == nil && v != formatVersion {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	appID = c.str()
	if c.err != nil {
		return "", fmt.Errorf("header: %w", c.err)
	}
	return appID, nil
}

// EncodeRecord serializes msg as a length-prefixed record.
func EncodeRecord(msg Message) ([]byte, error) {
	if err := checkString("path", msg.Path); err != nil {
		return nil, err
	}
	if err := checkString("timeline", msg.Timeline); err != nil {
		return nil, err
	}
	size := 4 + 2 + 4 + len(msg.Path) + len(msg.Timeline) + 8
	if m, ok := msg.Payload.(Mesh3D); ok {
		size += 8 + 12*(len(m.Vertices)+len(m.Normals))
	} else {
		size += 12
	}
	b := make([]byte, 4, size)

	var flags uint8
	if msg.Static {
		flags |= flagStatic
	}
	if msg.Payload == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnknownPayload)
	}
	b = append(b, uint8(msg.Payload.Kind()), flags)
	b = appendString(b, msg.Path)
	b = appendString(b, msg.Timeline)
	b = binary.LittleEndian.AppendUint64(b, uint64(msg.Sequence))

	switch p := msg.Payload.(type) {
	case Mesh3D:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(p.Vertices)))
		b = binary.LittleEndian.AppendUint32(b, uint32(len(p.Normals)))
		b = appendVecs(b, p.Vertices)
		b = appendVecs(b, p.Normals)
	case Transform3D:
		b = appendVecs(b, []mgl32.Vec3{p.Translation})
	case ViewCoordinates:
		b = append(b, uint8(p[0]), uint8(p[1]), uint8(p[2]))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPayload, p)
	}

	if len(b)-4 > MaxRecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(b)-4)
	}
	binary.LittleEndian.PutUint32(b[:4], uint32(len(b)-4))
	return b, nil
}

// DecodeRecord parses one record produced by EncodeRecord, length prefix included.
func DecodeRecord(b []byte) (Message, error) {
	if len(b) < 4 {
		return Message{}, fmt.Errorf("%w: short record", ErrMalformedRecord)
	}
	n := binary.LittleEndian.Uint32(b[:4])
	if int(n) != len(b)-4 {
		return Message{}, fmt.Errorf("%w: length %d, have %d", ErrMalformedRecord, n, len(b)-4)
	}
	return decodeBody(b[4:])
}

func decodeBody(body []byte) (Message, error) {
	c := cursor{buf: body}
	kind := Kind(c.u8())
	flags := c.u8()
	msg := Message{
		Path:     c.str(),
		Timeline: c.str(),
		Sequence: int64(c.u64()),
		Static:   flags&flagStatic != 0,
	}
	if c.err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedRecord, c.err)
	}

	switch kind {
	case KindMesh3D:
		nv := int(c.u32())
		nn := int(c.u32())
		if c.err == nil && (nv+nn)*12 != len(c.buf)-c.off {
			return Message{}, fmt.Errorf("%w: mesh size mismatch", ErrMalformedRecord)
		}
		msg.Payload = Mesh3D{Vertices: c.vecs(nv), Normals: c.vecs(nn)}
	case KindTransform3D:
		v := c.vecs(1)
		if c.err == nil {
			msg.Payload = Transform3D{Translation: v[0]}
		}
	case KindViewCoordinates:
		msg.Payload = ViewCoordinates{ViewDir(c.u8()), ViewDir(c.u8()), ViewDir(c.u8())}
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownPayload, uint8(kind))
	}
	if c.err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedRecord, c.err)
	}
	if c.off != len(c.buf) {
		return Message{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedRecord, len(c.buf)-c.off)
	}
	return msg, nil
}

// Encoder writes a recording to an io.Writer.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder writes the header for appID and returns an encoder.
func NewEncoder(w io.Writer, appID string) (*Encoder, error) {
	if err := checkString("app id", appID); err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := bw.Write(EncodeHeader(appID)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Encoder{w: bw}, nil
}

// Encode appends one record.
func (e *Encoder) Encode(msg Message) error {
	b, err := EncodeRecord(msg)
	if err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}

// Flush writes buffered records to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Decoder reads a recording written by Encoder.
type Decoder struct {
	r     *bufio.Reader
	appID string
	buf   []byte
}

// NewDecoder reads and checks the stream header.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	head := make([]byte, len(magic)+4)
	if _, err := io.ReadFull(br, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if string(head[:len(magic)]) != magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(head[len(magic):]); v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	idLen := int(binary.LittleEndian.Uint16(head[len(magic)+2:]))
	id := make([]byte, idLen)
	if _, err := io.ReadFull(br, id); err != nil {
		return nil, fmt.Errorf("header: %w", io.ErrUnexpectedEOF)
	}
	return &Decoder{r: br, appID: string(id)}, nil
}

// AppID returns the application id from the header.
func (d *Decoder) AppID() string {
	return d.appID
}

// Decode returns the next message, or io.EOF after the last complete record.
func (d *Decoder) Decode() (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, io.ErrUnexpectedEOF
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxRecordSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	if cap(d.buf) < int(n) {
		d.buf = make([]byte, n)
	}
	body := d.buf[:n]
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Message{}, io.ErrUnexpectedEOF
	}
	return decodeBody(body)
}

func checkString(field, s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrMalformedRecord, field, len(s), MaxStringLen)
	}
	return nil
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...)
}

func appendVecs(b []byte, vs []mgl32.Vec3) []byte {
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v[0]))
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v[1]))
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v[2]))
	}
	return b
}

// cursor is a bounds-checked little-endian reader; the first overrun sticks in err.
type cursor struct {
	buf []byte
	off int
	err error
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.buf) {
		c.err = io.ErrUnexpectedEOF
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u8() uint8 {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u16() uint16 {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) u64() uint64 {
	b := c.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *cursor) str() string {
	n := int(c.u16())
	return string(c.bytes(n))
}

func (c *cursor) vecs(n int) []mgl32.Vec3 {
	b := c.bytes(n * 12)
	if b == nil || n == 0 {
		return nil
	}
	out := make([]mgl32.Vec3, n)
	for i := range out {
		o := i * 12
		out[i] = mgl32.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(b[o:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[o+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[o+8:])),
		}
	}
	return out
}
