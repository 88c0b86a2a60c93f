package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives the map key for k. Strings are used verbatim; anything else is
// JSON-encoded and hashed to a fixed-length SHA-256 hex digest. encoding/json
// emits struct fields in declaration order and sorts map keys, so logically
// identical keys collapse to the same slot.
func Key(k any) (string, error) {
	if s, ok := k.(string); ok {
		return s, nil
	}

	data, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
