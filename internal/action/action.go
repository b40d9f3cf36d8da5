// Package action implements the post-processing pipeline applied to
// harvested records: split, strip, transform, save.
package action

import (
	"oaiharvest/internal/metadata"
)

// Action is one transform over a batch of records. Perform consumes the
// batch and returns the replacement batch; ok is false when the batch failed
// as a whole. Implementations own their parser state and must not be shared
// across workers; use a Factory to build per-worker instances.
type Action interface {
	Perform(records []*metadata.Record) ([]*metadata.Record, bool)
	String() string
	Equal(other Action) bool
}

// Transformer applies a precompiled stylesheet to one serialised document.
// The XSLT engine itself is an external collaborator; the pipeline only
// consumes this contract.
type Transformer interface {
	Transform(doc []byte) ([]byte, error)
	Close()
}
