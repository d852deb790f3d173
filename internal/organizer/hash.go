package organizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// hashChunkSize is the read buffer used while hashing. Content is streamed,
// never loaded whole into memory.
const hashChunkSize = 4096

// HashStore computes and compares content fingerprints. Two files with equal
// digests are exact duplicates, independent of name or location.
type HashStore struct {
	fsmgr FilesystemManager
}

// NewHashStore creates a HashStore reading through the given filesystem manager.
func NewHashStore(fsmgr FilesystemManager) *HashStore {
	return &HashStore{fsmgr: fsmgr}
}

// Hash returns the SHA-256 digest of the file's content as lowercase hex.
// Fails if the file is unreadable or disappears mid-read.
func (h *HashStore) Hash(path *Path) (string, error) {
	r, err := h.fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for hashing: %w", err)
	}
	defer r.Close()

	digest := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(digest, r, buf); err != nil {
		return "", fmt.Errorf("reading %s: %w", path.String(), err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// Equal reports whether two digests identify identical content.
func (h *HashStore) Equal(digestA, digestB string) bool {
	return digestA == digestB
}
