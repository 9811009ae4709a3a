package ratelimit

import (
	"crypto/md5"
	"encoding/hex"
)

// Key builds the counter key for an (action, ip) pair. The pair is
// hashed so header-derived addresses cannot inject key separators.
func Key(action, ip string) string {
	sum := md5.Sum([]byte(action + ip))
	return "ratelimit:" + hex.EncodeToString(sum[:])
}
