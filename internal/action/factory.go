package action

import (
	"fmt"
	"path/filepath"

	"oaiharvest/internal/config"
	"oaiharvest/internal/logger"
)

// Factory builds fresh action sequences from configuration declarations.
// XML and XSLT state is not safe to share, so every worker gets its own
// sequence built through a factory rather than cloning live actions.
type Factory struct {
	OutputRoot     string
	StylesheetDir  string
	LoadStylesheet func(path string) (Transformer, error)
	Log            *logger.Logger
}

// Sequence builds one sequence from its declaration.
func (f *Factory) Sequence(decl config.SequenceConfig) (*Sequence, error) {
	input := Format{
		Prefix: decl.Input.Prefix,
		Schema: decl.Input.Schema,
		Type:   decl.Input.Type,
	}

	actions := make([]Action, 0, len(decl.Actions))

	for _, a := range decl.Actions {
		switch a.Type {
		case "split":
			actions = append(actions, NewSplit(f.Log))
		case "strip":
			actions = append(actions, NewStrip(f.Log))
		case "transform":
			if f.LoadStylesheet == nil {
				return nil, fmt.Errorf("no stylesheet loader configured for %s", a.File)
			}

			xsl, err := f.LoadStylesheet(filepath.Join(f.StylesheetDir, a.File))
			if err != nil {
				return nil, fmt.Errorf("loading stylesheet %s: %w", a.File, err)
			}

			actions = append(actions, NewTransform(a.File, xsl, f.Log))
		case "save":
			actions = append(actions, NewSave(f.OutputRoot, f.Log))
		default:
			return nil, fmt.Errorf("unknown action type %q", a.Type)
		}
	}

	return NewSequence(input, actions...)
}

// Sequences builds every declared sequence.
func (f *Factory) Sequences(decls []config.SequenceConfig) ([]*Sequence, error) {
	sequences := make([]*Sequence, 0, len(decls))

	for i, decl := range decls {
		seq, err := f.Sequence(decl)
		if err != nil {
			return nil, fmt.Errorf("sequence[%d]: %w", i, err)
		}

		sequences = append(sequences, seq)
	}

	return sequences, nil
}
