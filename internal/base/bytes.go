package base

import "unsafe"

// S2B reinterprets str's backing array as a byte slice without copying.
// The returned slice must not be mutated.
func S2B(str *string) []byte {
	strHeader := (*[2]uintptr)(unsafe.Pointer(str))
	byteSliceHeader := [3]uintptr{
		strHeader[0], strHeader[1], strHeader[1],
	}
	return *(*[]byte)(unsafe.Pointer(&byteSliceHeader))
}

// B2S reinterprets b as a string without copying. The caller must not
// mutate b afterwards.
func B2S(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// HashBytes is the node hash used throughout the hash table and zset
// indices: an FNV-style accumulator with a fixed seed and multiplier.
func HashBytes(data []byte) uint64 {
	var hash uint64 = 0x8119C9DC5
	for _, c := range data {
		hash = (hash + uint64(c)) * 0x01000193
	}
	return hash
}
