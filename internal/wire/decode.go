package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xgzlucario/veloxd/internal/base"
)

// Value is a decoded response, used by the demonstration client and by
// round-trip tests; the server itself never builds one (it writes
// directly through a Writer).
type Value struct {
	Tag  Tag
	Code ErrCode
	Str  string
	Int  int64
	Dbl  float64
	Arr  []Value
}

// DecodeValue parses one tagged value from the front of buf, returning
// the value and the number of bytes consumed.
func DecodeValue(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, fmt.Errorf("%w: empty value", base.ErrInvalidFrame)
	}
	tag := Tag(buf[0])
	rest := buf[1:]
	consumed := 1

	switch tag {
	case TagNil:
		return Value{Tag: TagNil}, consumed, nil

	case TagErr:
		code, n, err := readU32(rest)
		if err != nil {
			return Value{}, 0, err
		}
		rest, consumed = rest[n:], consumed+n
		s, n, err := readString(rest)
		if err != nil {
			return Value{}, 0, err
		}
		consumed += n
		return Value{Tag: TagErr, Code: ErrCode(code), Str: s}, consumed, nil

	case TagStr:
		s, n, err := readString(rest)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Tag: TagStr, Str: s}, consumed + n, nil

	case TagInt:
		if len(rest) < 8 {
			return Value{}, 0, fmt.Errorf("%w: short int", base.ErrInvalidFrame)
		}
		v := int64(binary.LittleEndian.Uint64(rest))
		return Value{Tag: TagInt, Int: v}, consumed + 8, nil

	case TagDbl:
		if len(rest) < 8 {
			return Value{}, 0, fmt.Errorf("%w: short double", base.ErrInvalidFrame)
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(rest))
		return Value{Tag: TagDbl, Dbl: v}, consumed + 8, nil

	case TagArr:
		n32, n, err := readU32(rest)
		if err != nil {
			return Value{}, 0, err
		}
		rest, consumed = rest[n:], consumed+n
		items := make([]Value, 0, n32)
		for i := uint32(0); i < n32; i++ {
			item, n, err := DecodeValue(rest)
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, item)
			rest, consumed = rest[n:], consumed+n
		}
		return Value{Tag: TagArr, Arr: items}, consumed, nil

	default:
		return Value{}, 0, fmt.Errorf("%w: unknown tag %d", base.ErrInvalidFrame, tag)
	}
}

func readU32(buf []byte) (uint32, int, error) {
	if len(buf) < 4 {
		return 0, 0, fmt.Errorf("%w: short u32", base.ErrInvalidFrame)
	}
	return binary.LittleEndian.Uint32(buf), 4, nil
}

func readString(buf []byte) (string, int, error) {
	slen, n, err := readU32(buf)
	if err != nil {
		return "", 0, err
	}
	buf = buf[n:]
	if uint32(len(buf)) < slen {
		return "", 0, fmt.Errorf("%w: short string", base.ErrInvalidFrame)
	}
	return string(buf[:slen]), n + int(slen), nil
}

// EncodeRequest builds a request frame from positional argument strings,
// the inverse of ReadRequest. Used by the demonstration client.
func EncodeRequest(args []string) []byte {
	body := appendU32(nil, uint32(len(args)))
	for _, a := range args {
		body = appendU32(body, uint32(len(a)))
		body = append(body, a...)
	}
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out
}
