// Package gameid mints game identifiers: a UUIDv7 rendered as 26 characters
// of Crockford base32, so IDs sort by creation time and paste cleanly.
package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generate returns a fresh identifier.
func Generate() string {
	var random [10]byte
	if _, err := rand.Read(random[:]); err != nil {
		panic("gameid: reading random bytes: " + err.Error())
	}
	return encode(build(time.Now().UnixMilli(), random))
}

// build assembles a UUIDv7: 48-bit millisecond timestamp, version and
// variant bits, the rest random.
func build(ms int64, random [10]byte) [16]byte {
	var u [16]byte
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)
	copy(u[6:], random[:])
	u[6] = (u[6] & 0x0f) | 0x70
	u[8] = (u[8] & 0x3f) | 0x80
	return u
}

// encode walks the 128 bits big-endian, five at a time, zero-padding the
// tail. 26 characters cover 130 bits, so the first character is always 0-7.
func encode(u [16]byte) string {
	var b strings.Builder
	b.Grow(26)
	acc, bits := uint(0), 0
	for _, by := range u {
		acc = acc<<8 | uint(by)
		bits += 8
		for bits >= 5 {
			b.WriteByte(alphabet[(acc>>(bits-5))&31])
			bits -= 5
		}
	}
	b.WriteByte(alphabet[(acc<<(5-bits))&31])
	return b.String()
}

// Validate reports whether id looks like something Generate produced.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game ID must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
