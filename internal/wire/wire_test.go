package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	ast := assert.New(t)
	args := []string{"set", "foo", "bar"}
	frame := EncodeRequest(args)

	got, consumed, ok, err := ReadRequest(frame)
	ast.NoError(err)
	ast.True(ok)
	ast.Equal(len(frame), consumed)
	ast.Equal(args, got)
}

func TestReadRequestWaitsForMoreBytes(t *testing.T) {
	ast := assert.New(t)
	frame := EncodeRequest([]string{"get", "foo"})

	_, _, ok, err := ReadRequest(frame[:len(frame)-1])
	ast.False(ok)
	ast.NoError(err)
}

func TestReadRequestRejectsOversizedLength(t *testing.T) {
	ast := assert.New(t)
	frame := EncodeRequest([]string{"x"})
	frame[0], frame[1], frame[2], frame[3] = 0xff, 0xff, 0xff, 0x7f

	_, _, ok, err := ReadRequest(frame)
	ast.False(ok)
	ast.Error(err)
}

func TestReadRequestRejectsZeroLength(t *testing.T) {
	ast := assert.New(t)
	buf := []byte{0, 0, 0, 0}
	_, _, ok, err := ReadRequest(buf)
	ast.False(ok)
	ast.Error(err)
}

func TestReadRequestRejectsTrailingBytes(t *testing.T) {
	ast := assert.New(t)
	frame := EncodeRequest([]string{"get", "foo"})
	// Patch nstr down to 1 while leaving the second string's bytes in
	// place, so its 7 bytes (length header plus "foo") trail the parsed
	// strings.
	frame[4] = 1

	_, _, ok, err := ReadRequest(frame)
	ast.False(ok)
	ast.Error(err)
}

func TestPipelinedRequestsParseInOrder(t *testing.T) {
	ast := assert.New(t)
	var buf []byte
	buf = append(buf, EncodeRequest([]string{"set", "a", "1"})...)
	buf = append(buf, EncodeRequest([]string{"set", "b", "2"})...)
	buf = append(buf, EncodeRequest([]string{"set", "c", "3"})...)

	var got [][]string
	for len(buf) > 0 {
		args, n, ok, err := ReadRequest(buf)
		ast.NoError(err)
		if !ok {
			break
		}
		got = append(got, args)
		buf = buf[n:]
	}
	ast.Equal([][]string{
		{"set", "a", "1"},
		{"set", "b", "2"},
		{"set", "c", "3"},
	}, got)
}

func TestWriterValueRoundTrip(t *testing.T) {
	ast := assert.New(t)

	var w Writer
	w.WriteNil()
	v, n, err := DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal(len(w.Bytes()), n)
	ast.Equal(TagNil, v.Tag)

	w.Reset()
	w.WriteErr(ErrBadArg, "bad argument")
	v, _, err = DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal(TagErr, v.Tag)
	ast.Equal(ErrBadArg, v.Code)
	ast.Equal("bad argument", v.Str)

	w.Reset()
	w.WriteStr("hello")
	v, _, err = DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal("hello", v.Str)

	w.Reset()
	w.WriteInt(-42)
	v, _, err = DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal(int64(-42), v.Int)

	w.Reset()
	w.WriteDbl(3.5)
	v, _, err = DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal(3.5, v.Dbl)
}

func TestWriterStreamingArray(t *testing.T) {
	ast := assert.New(t)

	var w Writer
	pos := w.StartArray()
	w.WriteStr("b")
	w.WriteDbl(2.0)
	w.WriteStr("c")
	w.WriteDbl(2.0)
	w.EndArray(pos, 4)

	v, n, err := DecodeValue(w.Bytes())
	ast.NoError(err)
	ast.Equal(len(w.Bytes()), n)
	ast.Equal(TagArr, v.Tag)
	ast.Len(v.Arr, 4)
	ast.Equal("b", v.Arr[0].Str)
	ast.Equal(2.0, v.Arr[1].Dbl)
	ast.Equal("c", v.Arr[2].Str)
}

func TestFrameDowngradesOversizedResponseToTooBig(t *testing.T) {
	ast := assert.New(t)

	var w Writer
	w.WriteStr(string(make([]byte, MaxLen+1)))
	frame := Frame(w.Bytes())

	args, consumed, ok, err := readFrameBody(frame)
	ast.NoError(err)
	ast.True(ok)
	ast.Equal(len(frame), consumed)

	v, _, err := DecodeValue(args)
	ast.NoError(err)
	ast.Equal(TagErr, v.Tag)
	ast.Equal(ErrTooBig, v.Code)
}

// readFrameBody strips a response frame's outer length prefix, the
// mirror image of ReadRequest but for the response side.
func readFrameBody(frame []byte) ([]byte, int, bool, error) {
	if len(frame) < 4 {
		return nil, 0, false, nil
	}
	l := uint32(frame[0]) | uint32(frame[1])<<8 | uint32(frame[2])<<16 | uint32(frame[3])<<24
	total := 4 + int(l)
	if len(frame) < total {
		return nil, 0, false, nil
	}
	return frame[4:total], total, true, nil
}
