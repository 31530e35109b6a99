package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single audit log entry
type LogEntry struct {
	Sequence     int    `json:"sequence"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
}

// ChainLogger provides a tamper-evident, append-only trail using hash
// chaining. Every entry's hash covers the previous entry's hash.
type ChainLogger struct {
	mu           sync.Mutex
	previousHash string
	entries      []*LogEntry
	now          func() time.Time
}

// Option configures a ChainLogger.
type Option func(*ChainLogger)

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *ChainLogger) { c.now = now }
}

// GenesisHash is the previous hash of the first entry.
var GenesisHash = strings.Repeat("0", 64)

// NewChainLogger creates a new ChainLogger initialized with a zero hash.
func NewChainLogger(opts ...Option) *ChainLogger {
	c := &ChainLogger{
		previousHash: GenesisHash,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append adds a new log entry to the chain.
func (c *ChainLogger) Append(payload string) *LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &LogEntry{
		Sequence:     len(c.entries) + 1,
		Timestamp:    c.now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.previousHash,
		Payload:      payload,
	}
	entry.Hash = hashEntry(entry.PreviousHash, entry)

	c.previousHash = entry.Hash
	c.entries = append(c.entries, entry)

	out := *entry
	return &out
}

// Entries returns copies of all entries, oldest first.
func (c *ChainLogger) Entries() []*LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*LogEntry, len(c.entries))
	for i, e := range c.entries {
		cp := *e
		out[i] = &cp
	}
	return out
}

// Len returns the number of entries.
func (c *ChainLogger) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Verify checks the logger's own chain.
func (c *ChainLogger) Verify() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 && c.entries[0].PreviousHash != GenesisHash {
		return false
	}
	return VerifyChain(c.entries)
}

// VerifyChain checks if a slice of entries forms a valid hash chain.
func VerifyChain(entries []*LogEntry) bool {
	if len(entries) == 0 {
		return true
	}

	for i, entry := range entries {
		var prevHash string
		if i == 0 {
			prevHash = entry.PreviousHash
		} else {
			prevHash = entries[i-1].Hash
			if entry.PreviousHash != prevHash {
				return false
			}
			if entry.Sequence != entries[i-1].Sequence+1 {
				return false
			}
		}

		if hashEntry(prevHash, entry) != entry.Hash {
			return false
		}
	}
	return true
}

func hashEntry(prevHash string, entry *LogEntry) string {
	hashInput := fmt.Sprintf("%s|%d|%s|%s", prevHash, entry.Sequence, entry.Timestamp, entry.Payload)
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}
