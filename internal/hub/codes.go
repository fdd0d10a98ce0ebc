package hub

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

var ErrInvalidCode = errors.New("room codes are 4 to 8 letters or digits")

const (
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength  = 5
)

// GenerateCode returns a random room code. Look-alike characters (0/O, 1/I)
// are left out so codes survive being read aloud.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) < 4 || len(code) > 8 {
		return "", ErrInvalidCode
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}
