// internal/layout/anchor.go
package layout

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// DiscriminatorSize is the length of an Anchor account/instruction/event prefix.
const DiscriminatorSize = 8

// Discriminator is the first 8 bytes of sha256("<namespace>:<name>").
type Discriminator [DiscriminatorSize]byte

func sighash(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// AccountDiscriminator returns the prefix of an Anchor account named name (e.g. "BondingCurve").
func AccountDiscriminator(name string) Discriminator { return sighash("account", name) }

// InstructionDiscriminator returns the prefix of a global Anchor instruction (e.g. "buy").
func InstructionDiscriminator(name string) Discriminator { return sighash("global", name) }

// EventDiscriminator returns the prefix of an emitted Anchor event (e.g. "CreateEvent").
func EventDiscriminator(name string) Discriminator { return sighash("event", name) }

// Bytes returns a fresh slice copy, safe to append instruction args to.
func (d Discriminator) Bytes() []byte {
	out := make([]byte, DiscriminatorSize, DiscriminatorSize+32)
	copy(out, d[:])
	return out
}

// CheckDiscriminator verifies that data starts with want.
func CheckDiscriminator(name string, data []byte, want Discriminator) error {
	if len(data) < DiscriminatorSize {
		return &DecodeError{Layout: name, Have: len(data), Want: DiscriminatorSize, Err: ErrShortBuffer}
	}
	if !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		return fmt.Errorf("decode %s: %w: got %x, want %x", name, ErrDiscriminatorMismatch, data[:DiscriminatorSize], want[:])
	}
	return nil
}

// DecodeAnchor checks the account discriminator for name and Borsh-decodes the
// remaining bytes into dst. Trailing bytes beyond dst's fields are ignored.
func DecodeAnchor(data []byte, name string, dst interface{}) error {
	if err := CheckDiscriminator(name, data, AccountDiscriminator(name)); err != nil {
		return err
	}
	if err := bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(dst); err != nil {
		return &DecodeError{Layout: name, Offset: DiscriminatorSize, Have: len(data), Err: fmt.Errorf("%w: %v", ErrShortBuffer, err)}
	}
	return nil
}
