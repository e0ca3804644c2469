package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/avellore/ragstack/internal/domain/commonModels"
)

// DuplicateDetector keeps a content-hash membership set for one ingestion run.
// Hashing is over the exact content bytes, so whitespace variants count as
// distinct. Safe for concurrent use.
type DuplicateDetector struct {
	mu sync.RWMutex
	// hash -> id of the first owner seen with that content
	seen map[string]string
}

func NewDuplicateDetector() *DuplicateDetector {
	return &DuplicateDetector{
		seen: make(map[string]string),
	}
}

// Hash returns the SHA-256 hex digest of content.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether identical content was already registered, and
// the id of the first owner when it was. Empty content is never a duplicate.
func (d *DuplicateDetector) IsDuplicate(content string) (bool, string) {
	if strings.TrimSpace(content) == "" {
		return false, ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	owner, ok := d.seen[Hash(content)]
	return ok, owner
}

// Add registers content under ownerID. Returns false when the content was
// already present (the original owner is kept).
func (d *DuplicateDetector) Add(content string, ownerID string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	h := Hash(content)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[h]; ok {
		return false
	}
	d.seen[h] = ownerID
	return true
}

func (d *DuplicateDetector) IsDuplicateChunk(chunk commonModels.DocumentChunk) (bool, string) {
	return d.IsDuplicate(chunk.Content)
}

func (d *DuplicateDetector) AddChunk(chunk commonModels.DocumentChunk) bool {
	return d.Add(chunk.Content, chunk.ID)
}

// AddChunks registers a batch and returns the chunks that were new. Within
// the batch itself the first occurrence wins.
func (d *DuplicateDetector) AddChunks(chunks []commonModels.DocumentChunk) []commonModels.DocumentChunk {
	unique := make([]commonModels.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if d.AddChunk(chunk) {
			unique = append(unique, chunk)
		}
	}
	return unique
}

// Remove drops content from the set so it can be re-registered, e.g. after a
// failed store write.
func (d *DuplicateDetector) Remove(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, Hash(content))
}

func (d *DuplicateDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]string)
}

// Size returns the number of distinct contents registered.
func (d *DuplicateDetector) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.seen)
}
