package action

import (
	"errors"
	"fmt"
	"strings"

	"oaiharvest/internal/metadata"
)

// Sequence construction errors.
var (
	ErrEmptySequence       = errors.New("sequence has no actions")
	ErrSplitNotFirst       = errors.New("split must be the first action in a sequence")
	ErrActionAfterSave     = errors.New("no action may follow save")
	ErrStripAfterTransform = errors.New("strip must precede transform")
)

// Format describes the metadata format a sequence consumes.
type Format struct {
	Prefix string
	Schema string
	Type   string
}

// Sequence is an ordered chain of actions bound to an input format. Adjacent
// actions must be type-compatible: split consumes a list envelope, strip a
// single record, save a finalised record.
type Sequence struct {
	Input   Format
	actions []Action
}

// NewSequence validates action adjacency and builds the sequence.
func NewSequence(input Format, actions ...Action) (*Sequence, error) {
	if len(actions) == 0 {
		return nil, ErrEmptySequence
	}

	sawSave := false
	sawTransform := false

	for i, a := range actions {
		if sawSave {
			return nil, fmt.Errorf("%w: %s", ErrActionAfterSave, a)
		}

		switch a.(type) {
		case *Split:
			if i != 0 {
				return nil, ErrSplitNotFirst
			}
		case *Strip:
			if sawTransform {
				return nil, ErrStripAfterTransform
			}
		case *Transform:
			sawTransform = true
		case *Save:
			sawSave = true
		}
	}

	return &Sequence{Input: input, actions: actions}, nil
}

// Actions returns the chain in order.
func (s *Sequence) Actions() []Action {
	return s.actions
}

// Run feeds the batch through the chain. Records that are already split skip
// a leading split action. Returns the number of records that reached the end
// of the chain and whether the whole batch survived.
func (s *Sequence) Run(records []*metadata.Record) (int, bool) {
	if len(records) == 0 {
		return 0, false
	}

	batch := records

	for i, a := range s.actions {
		if i == 0 {
			if _, isSplit := a.(*Split); isSplit && !batch[0].List {
				continue
			}
		}

		next, ok := a.Perform(batch)
		if !ok {
			return 0, false
		}

		batch = next
	}

	return len(batch), true
}

// Equal reports whether two sequences hold pairwise equal actions for the
// same input prefix.
func (s *Sequence) Equal(other *Sequence) bool {
	if other == nil || s.Input.Prefix != other.Input.Prefix {
		return false
	}

	if len(s.actions) != len(other.actions) {
		return false
	}

	for i, a := range s.actions {
		if !a.Equal(other.actions[i]) {
			return false
		}
	}

	return true
}

// String lists the chain, e.g. "oai_dc: split -> strip -> save".
func (s *Sequence) String() string {
	names := make([]string, len(s.actions))
	for i, a := range s.actions {
		names[i] = a.String()
	}

	return fmt.Sprintf("%s: %s", s.Input.Prefix, strings.Join(names, " -> "))
}
