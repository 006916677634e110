package sessionstore

import (
	"encoding/base64"
	"strings"
)

const (
	// KeyPrefix namespaces session records in the shared durable store.
	KeyPrefix = "bellhop_session_"

	secretPrefixLen = 20
	derivedKeyLen   = 10
)

// KeyFor derives the storage key for a client secret without persisting the
// secret itself. It is an obfuscation, not a hash: secrets that share their
// first 20 characters map to the same key.
func KeyFor(secret string) string {
	runes := []rune(secret)
	if len(runes) > secretPrefixLen {
		runes = runes[:secretPrefixLen]
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(string(runes)))

	var b strings.Builder
	for _, r := range encoded {
		if b.Len() == derivedKeyLen {
			break
		}
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return KeyPrefix + b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
