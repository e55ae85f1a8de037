package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for a future encoding change.
const (
	DomainModel = "datastack/model/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash returns the content hash of a model's canonical encoding.
// Stores record it to detect that a file was written under another model.
func ModelHash(canonical []byte) string {
	return hashWithDomain(DomainModel, canonical)
}
