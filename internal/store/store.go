// Package store is the durable document layer. Documents live in named
// collections keyed by string; values are JSON. The redis implementation
// backs production, the memory one backs tests.
package store

import (
	"context"
	"encoding/json"
)

// Collection names used by the gateway.
const (
	CollStudentDetails = "studentDetails"
	CollActiveSessions = "activeSessions"
	CollUsers          = "users"
	CollCache          = "cache"
	// CollOD mirrors hour-wise attendance into a second collection. The two
	// writes are intentionally kept in lockstep with no reconciliation rule.
	CollOD = "OD"
)

// Store is the document-store contract: get/set/merge/delete by
// collection+key. Merge overlays top-level JSON fields onto the existing
// document, creating it when absent.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, bool, error)
	Set(ctx context.Context, collection, key string, value []byte) error
	Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error
	Delete(ctx context.Context, collection, key string) error
}

// mergeDocument overlays fields onto an existing JSON object. Shared by both
// implementations so merge semantics cannot drift between them.
func mergeDocument(existing []byte, fields map[string]json.RawMessage) ([]byte, error) {
	doc := make(map[string]json.RawMessage)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	return json.Marshal(doc)
}
