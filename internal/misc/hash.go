package misc

import (
	"crypto/sha256"
	"encoding/hex"
)

// SumSHA256 returns the hex SHA-256 of value followed by key. value is not modified.
func SumSHA256(value []byte, key string) string {
	h := sha256.New()
	h.Write(value)
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}
