package generator

import (
	"crypto/rand"
	"math/big"
)

// URL-safe, so tokens drop into paths and query strings unescaped.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

const (
	shareTokenLen = 32
	sessionIDLen  = 24
)

func RandomID(length int) (string, error) {
	result := make([]byte, length)
	n := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		randomIndex, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[randomIndex.Int64()]
	}

	return string(result), nil
}

func ShareToken() (string, error) {
	return RandomID(shareTokenLen)
}

func SessionID() (string, error) {
	return RandomID(sessionIDLen)
}
