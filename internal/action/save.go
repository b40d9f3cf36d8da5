package action

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

// fileNameSanitizer maps characters that cannot appear in file names.
var fileNameSanitizer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// Save persists each record under <root>/<provider>/<prefix>/<id>.xml.
// Writes are atomic per file: the document goes to a temp path in the target
// directory and is renamed into place.
type Save struct {
	root string
	log  *logger.Logger
}

// NewSave creates a save action writing under the given output root.
func NewSave(root string, log *logger.Logger) *Save {
	return &Save{root: root, log: log}
}

// Perform writes every record in the batch. Any filesystem error fails the
// batch.
func (a *Save) Perform(records []*metadata.Record) ([]*metadata.Record, bool) {
	for _, rec := range records {
		if err := a.save(rec); err != nil {
			a.log.WithError(err).WithField("id", rec.ID).Error("save failed")

			return nil, false
		}

		a.log.WithFields(logger.Fields{
			"id":       rec.ID,
			"prefix":   rec.Prefix,
			"provider": rec.Origin,
		}).Info("record saved")
	}

	return records, true
}

func (a *Save) save(rec *metadata.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no identifier")
	}

	dir := filepath.Join(a.root, Sanitize(rec.Origin), Sanitize(rec.Prefix))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	rec.Doc.Indent(2)

	data, err := rec.Doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialising record: %w", err)
	}

	target := filepath.Join(dir, Sanitize(rec.ID)+".xml")
	tmp := target + "." + uuid.NewString() + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)

		return fmt.Errorf("renaming record into place: %w", err)
	}

	return nil
}

// Sanitize makes a record identifier or provider name safe as a path
// component.
func Sanitize(s string) string {
	return fileNameSanitizer.Replace(s)
}

func (a *Save) String() string {
	return "save"
}

// Equal reports structural equality: saves are equal when they write to the
// same output root.
func (a *Save) Equal(other Action) bool {
	s, ok := other.(*Save)

	return ok && s.root == a.root
}
