package utils

import (
	"crypto/rand" // Secure randomness
	"math/big"    // Uniform index selection
	"strings"     // String building
)

// codeAlphabet omits 0/O and 1/I so printed codes read unambiguously
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random code of the form PREFIX-XXXX-XXXX.
// An empty prefix yields XXXX-XXXX.
func GenerateCode(prefix string) (string, error) {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(strings.ToUpper(prefix)) // Normalised prefix
		b.WriteByte('-')
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < 8; i++ {
		if i == 4 {
			b.WriteByte('-') // Group separator
		}
		n, err := rand.Int(rand.Reader, max) // Uniform pick
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
