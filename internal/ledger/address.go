package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address identifies an account: 20 bytes, rendered as 0x-prefixed hex
// with an EIP-55 checksum.
type Address [20]byte

// ParseAddress decodes a 0x-prefixed hex address. Letter case is ignored
// on input; use String to obtain the canonical checksummed form.
func ParseAddress(s string) (Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, fmt.Errorf("address %q lacks 0x prefix", s)
	}
	body := s[2:]
	if len(body) != 2*len(Address{}) {
		return Address{}, fmt.Errorf("address %q has wrong length", s)
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return Address{}, fmt.Errorf("address %q is not hex: %w", s, err)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// String renders the address with the EIP-55 mixed-case checksum: each
// hex letter is uppercased when the matching nibble of the keccak256 hash
// of the lowercase hex body is >= 8.
func (a Address) String() string {
	body := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	sum := h.Sum(nil)

	out := []byte("0x" + body)
	for i := 0; i < len(body); i++ {
		c := out[2+i]
		if c < 'a' || c > 'f' {
			continue
		}
		if (sum[i/2]>>(4-4*uint(i%2)))&0xf >= 8 {
			out[2+i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}
