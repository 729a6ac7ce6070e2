// Package wire implements the request/response codec: a length-prefixed
// request frame (a string count followed by that many length-prefixed
// strings) and a length-prefixed, tagged-value response frame. Response
// arrays whose length isn't known until the walk filling them finishes
// use a length-hole-then-patch pattern: StartArray reserves the count
// field and EndArray fills it in once every item has been written.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xgzlucario/veloxd/internal/base"
)

// MaxLen bounds both the outer frame length and the request string count.
const MaxLen = 16384

// Tag identifies a response value's wire encoding.
type Tag byte

const (
	TagNil Tag = 0
	TagErr Tag = 1
	TagStr Tag = 2
	TagInt Tag = 3
	TagDbl Tag = 4
	TagArr Tag = 5
)

// ErrCode is the four-way error taxonomy surfaced to clients.
type ErrCode uint32

const (
	ErrTooBig ErrCode = iota
	ErrBadArg
	ErrNotFound
	ErrUnknown
)

func (c ErrCode) String() string {
	switch c {
	case ErrTooBig:
		return "TOO_BIG"
	case ErrBadArg:
		return "BAD_ARG"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrUnknown:
		return "UNKNOWN"
	default:
		return "ERR"
	}
}

// Writer accumulates one response body by direct append, so a handler
// can reserve an array's length hole before it knows the final count and
// patch it once the walk producing the items finishes.
type Writer struct {
	buf []byte
}

// Bytes returns the body written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset empties the writer for reuse across requests on one connection.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteNil() {
	w.buf = append(w.buf, byte(TagNil))
}

func (w *Writer) WriteErr(code ErrCode, msg string) {
	w.buf = append(w.buf, byte(TagErr))
	w.buf = appendU32(w.buf, uint32(code))
	w.buf = appendU32(w.buf, uint32(len(msg)))
	w.buf = append(w.buf, msg...)
}

func (w *Writer) WriteStr(s string) {
	w.buf = append(w.buf, byte(TagStr))
	w.buf = appendU32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteInt(n int64) {
	w.buf = append(w.buf, byte(TagInt))
	w.buf = appendU64(w.buf, uint64(n))
}

func (w *Writer) WriteDbl(f float64) {
	w.buf = append(w.buf, byte(TagDbl))
	w.buf = appendU64(w.buf, math.Float64bits(f))
}

// StartArray writes the array tag and a 4-byte count hole, returning its
// position for EndArray to patch once every item has been appended.
func (w *Writer) StartArray() int {
	w.buf = append(w.buf, byte(TagArr))
	pos := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	return pos
}

// EndArray patches the count hole at pos with n, the number of items
// actually appended after StartArray returned pos.
func (w *Writer) EndArray(pos, n int) {
	binary.LittleEndian.PutUint32(w.buf[pos:pos+4], uint32(n))
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Frame wraps body with its 4-byte little-endian length prefix,
// downgrading to a TOO_BIG error frame if body exceeds MaxLen.
func Frame(body []byte) []byte {
	if len(body) > MaxLen {
		var w Writer
		w.WriteErr(ErrTooBig, "response size is too big")
		body = w.Bytes()
	}
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out
}

// ReadRequest attempts to parse one complete request frame from the
// front of buf. ok is false if buf does not yet hold a full frame — the
// caller should wait for more bytes and retry once more arrive. A
// non-nil err means the frame is malformed; framing errors are fatal and
// the connection must close.
func ReadRequest(buf []byte) (args []string, consumed int, ok bool, err error) {
	if len(buf) < 4 {
		return nil, 0, false, nil
	}
	l := binary.LittleEndian.Uint32(buf)
	if l == 0 || l > MaxLen {
		return nil, 0, false, fmt.Errorf("%w: length %d", base.ErrInvalidFrame, l)
	}
	total := 4 + int(l)
	if len(buf) < total {
		return nil, 0, false, nil
	}

	body := buf[4:total]
	if len(body) < 4 {
		return nil, 0, false, fmt.Errorf("%w: missing nstr", base.ErrInvalidFrame)
	}
	nstr := binary.LittleEndian.Uint32(body)
	if nstr > MaxLen {
		return nil, 0, false, fmt.Errorf("%w: nstr %d", base.ErrInvalidFrame, nstr)
	}
	body = body[4:]

	out := make([]string, 0, nstr)
	for i := uint32(0); i < nstr; i++ {
		if len(body) < 4 {
			return nil, 0, false, fmt.Errorf("%w: truncated string header", base.ErrInvalidFrame)
		}
		slen := binary.LittleEndian.Uint32(body)
		body = body[4:]
		if uint32(len(body)) < slen {
			return nil, 0, false, fmt.Errorf("%w: truncated string body", base.ErrInvalidFrame)
		}
		out = append(out, string(body[:slen]))
		body = body[slen:]
	}
	if len(body) != 0 {
		return nil, 0, false, fmt.Errorf("%w: trailing bytes", base.ErrInvalidFrame)
	}
	return out, total, true, nil
}
