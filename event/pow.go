package event

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// CountLeadingZeroBits returns the number of leading zero bits in
// digest. The count stops at the first byte that is not all zeros;
// that byte still contributes its own leading zeros.
func CountLeadingZeroBits(digest []byte) int {
	total := 0
	for _, b := range digest {
		if b == 0 {
			total += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return total
			}
			total++
		}
	}
	return total
}

// Difficulty returns the NIP-13 difficulty of the event id. A
// malformed id counts as zero difficulty.
func (e *Event) Difficulty() int {
	digest, err := hex.DecodeString(e.ID)
	if err != nil {
		return 0
	}
	return CountLeadingZeroBits(digest)
}

// Mine searches for a nonce such that the builder's id has at least
// difficulty leading zero bits. Each attempt appends a
// ["nonce", <counter>, <difficulty>] tag; a failed attempt pops the
// tag and refreshes created_at before retrying. A difficulty of zero
// skips mining entirely, leaving the tags untouched.
//
// Expected work is on the order of 2^difficulty hashes and there is no
// iteration bound. Run it off any loop that services relay traffic and
// impose an external timeout for unreasonable targets.
func (b *Builder) Mine(difficulty int) {
	if difficulty <= 0 {
		return
	}
	target := strconv.Itoa(difficulty)
	for nonce := uint64(0); ; nonce++ {
		b.Tags = append(b.Tags, []string{"nonce", strconv.FormatUint(nonce, 10), target})
		sum := sha256.Sum256(b.Serialize())
		if CountLeadingZeroBits(sum[:]) >= difficulty {
			return
		}
		b.Tags = b.Tags[:len(b.Tags)-1]
		b.CreatedAt = time.Now().Unix()
	}
}
