package service

import (
	"crypto/rand"
	"math/big"
)

const (
	tokenLength   = 40
	tokenAlphabet = "0123456789abcdef"
)

// randomToken returns the opaque intent token carried as merchant data.
func randomToken() (string, error) {
	b, err := randBytesFromStr(tokenLength, tokenAlphabet)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func randBytesFromStr(length int, from string) ([]byte, error) {
	b := make([]byte, length)
	fromLenBigInt := big.NewInt(int64(len(from)))
	for i := range b {
		r, err := rand.Int(rand.Reader, fromLenBigInt)
		if err != nil {
			return nil, err
		}
		b[i] = from[r.Int64()]
	}
	return b, nil
}
