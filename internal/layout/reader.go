// =============================
// File: internal/layout/reader.go
// =============================
package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

var (
	// ErrShortBuffer is returned when account data is smaller than the layout being decoded.
	ErrShortBuffer = errors.New("account data too short")
	// ErrDiscriminatorMismatch is returned when an Anchor account carries an unexpected 8-byte prefix.
	ErrDiscriminatorMismatch = errors.New("discriminator mismatch")
	// ErrStringTooLong is returned when a length prefix exceeds what the layout allows.
	ErrStringTooLong = errors.New("string length exceeds layout limit")
)

// DecodeError describes a failed decode of a named layout.
type DecodeError struct {
	Layout string
	Offset int
	Have   int
	Want   int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v (offset %d, have %d bytes, want %d)", e.Layout, e.Err, e.Offset, e.Have, e.Want)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reader is a forward-only little-endian cursor over account data.
// The first out-of-bounds read latches an error and every later read returns zero values.
type Reader struct {
	name   string
	data   []byte
	offset int
	err    error
}

// NewReader returns a cursor positioned at the start of data.
func NewReader(name string, data []byte) *Reader {
	return &Reader{name: name, data: data}
}

// Expect fails the reader up front when data is shorter than size.
func (r *Reader) Expect(size int) *Reader {
	if r.err == nil && len(r.data) < size {
		r.err = &DecodeError{Layout: r.name, Offset: 0, Have: len(r.data), Want: size, Err: ErrShortBuffer}
	}
	return r
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.offset+n > len(r.data) {
		r.err = &DecodeError{Layout: r.name, Offset: r.offset, Have: len(r.data), Want: r.offset + n, Err: ErrShortBuffer}
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.U8() != 0
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

func (r *Reader) U128() uint128.Uint128 {
	b := r.take(16)
	if b == nil {
		return uint128.Zero
	}
	return uint128.FromBytes(b)
}

func (r *Reader) PublicKey() solana.PublicKey {
	b := r.take(32)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// BorshString reads a u32 length-prefixed string and trims the NUL padding
// fixed-width fields carry. Lengths above limit fail the read.
func (r *Reader) BorshString(limit int) string {
	n := int(r.U32())
	if r.err != nil {
		return ""
	}
	if n > limit {
		r.err = &DecodeError{Layout: r.name, Offset: r.offset - 4, Have: n, Want: limit, Err: ErrStringTooLong}
		return ""
	}
	return strings.TrimRight(string(r.take(n)), "\x00")
}

func (r *Reader) Skip(n int) {
	r.take(n)
}

// Offset reports the current cursor position.
func (r *Reader) Offset() int { return r.offset }

// Remaining reports how many bytes are left after the cursor.
func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

// Err returns the first decode error, if any.
func (r *Reader) Err() error { return r.err }
