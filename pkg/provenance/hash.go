package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashPrefixLen is the number of hex characters kept from a SHA-256 digest.
const hashPrefixLen = 16

// Hash returns a short content fingerprint: the first 16 hex characters of
// the SHA-256 digest. Non-string values are hashed over their JSON encoding.
func Hash(data interface{}) string {
	var raw []byte
	switch v := data.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		raw = encoded
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}
