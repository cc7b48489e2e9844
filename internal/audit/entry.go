// Package audit implements the tamper-evident, append-only record of every
// guard decision.
//
// Each Entry carries the hash of its predecessor, and its own hash is
//
//	SHA-256(prev_hash | canonical JSON of the entry fields)
//
// so modifying any stored entry breaks verification from that point on.
// The first entry chains onto GenesisHash. Persistence is pluggable behind
// Store; the chain is computed and checked here, independent of backend.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// GenesisHash is the PrevHash of the entry with sequence number 0.
var GenesisHash = strings.Repeat("0", 64)

// Action values recorded in Entry.Action.
const (
	ActionNone    = "none"
	ActionMasked  = "masked"
	ActionBlocked = "blocked"
	ActionWarned  = "warned"
)

// Record is the caller-supplied part of an entry.
type Record struct {
	RunID       string
	GuardID     string
	EntityKinds []string
	Severities  []string
	Action      string
	// Fault names the guard fault kind when the guard failed; empty otherwise.
	Fault string
}

// Entry is one persisted, hash-chained audit record. It is serialised as a
// single JSON line.
type Entry struct {
	Sequence    uint64    `json:"sequence_no"`
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	GuardID     string    `json:"guard_id"`
	EntityKinds []string  `json:"entity_kinds"`
	Severities  []string  `json:"severities"`
	Action      string    `json:"action_taken"`
	Fault       string    `json:"fault,omitempty"`
	PrevHash    string    `json:"prev_hash"`
	Hash        string    `json:"entry_hash"`
}

// hashed is the canonical field set covered by Entry.Hash. Struct fields
// only, so json.Marshal output order is fixed.
type hashed struct {
	Sequence    uint64   `json:"sequence_no"`
	Timestamp   string   `json:"timestamp"`
	RunID       string   `json:"run_id"`
	GuardID     string   `json:"guard_id"`
	EntityKinds []string `json:"entity_kinds"`
	Severities  []string `json:"severities"`
	Action      string   `json:"action_taken"`
	Fault       string   `json:"fault"`
}

// ComputeHash returns the hex SHA-256 over e.PrevHash and the canonical
// serialisation of e's fields. e.Hash is ignored.
func ComputeHash(e Entry) string {
	payload, err := json.Marshal(hashed{
		Sequence:    e.Sequence,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		RunID:       e.RunID,
		GuardID:     e.GuardID,
		EntityKinds: nonNil(e.EntityKinds),
		Severities:  nonNil(e.Severities),
		Action:      e.Action,
		Fault:       e.Fault,
	})
	if err != nil {
		// Only strings and integers are marshalled; this cannot fail.
		panic(err)
	}

	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte{'|'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Valid reports whether e.Hash matches its contents.
func (e Entry) Valid() bool {
	return e.Hash == ComputeHash(e)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
