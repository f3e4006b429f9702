package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const hardenedOffset = 0x80000000

// deriveSLIP10 walks an ed25519 SLIP-10 path from a BIP39 seed. Ed25519 only has hardened children.
func deriveSLIP10(seed []byte, path string) ([]byte, error) {
	segments := strings.Split(strings.TrimSpace(path), "/")
	if len(segments) == 0 || segments[0] != "m" {
		return nil, fmt.Errorf("derivation path %q must start with m", path)
	}

	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chain := sum[:32], sum[32:]

	for _, seg := range segments[1:] {
		if !strings.HasSuffix(seg, "'") && !strings.HasSuffix(seg, "H") {
			return nil, fmt.Errorf("derivation path %q: segment %q is not hardened", path, seg)
		}
		idx, err := strconv.ParseUint(seg[:len(seg)-1], 10, 31)
		if err != nil {
			return nil, fmt.Errorf("derivation path %q: %w", path, err)
		}

		data := make([]byte, 0, 37)
		data = append(data, 0)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, uint32(idx)+hardenedOffset)

		mac = hmac.New(sha512.New, chain)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chain = sum[:32], sum[32:]
	}
	return key, nil
}
