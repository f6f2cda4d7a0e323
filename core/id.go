package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// NewInstanceID builds a unique identifier for this API process based on
// hostname, pid, and a random suffix.
func NewInstanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "api"
	}
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), randomHex(6))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			b[i] = byte(i + 1)
		}
	}
	return hex.EncodeToString(b)
}
