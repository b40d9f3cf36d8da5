package cycle

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// overviewDoc is the XML layout of the overview file.
type overviewDoc struct {
	XMLName   xml.Name    `xml:"overview"`
	Endpoints []*Endpoint `xml:"endpoint"`
}

// Overview owns the persistent endpoint overview file. A missing file starts
// an empty overview; endpoints are created on first appearance and never
// deleted.
type Overview struct {
	path string
	doc  overviewDoc
}

// LoadOverview reads the overview file at path.
func LoadOverview(path string) (*Overview, error) {
	o := &Overview{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return o, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading overview file: %w", err)
	}

	if err := xml.Unmarshal(data, &o.doc); err != nil {
		return nil, fmt.Errorf("parsing overview file: %w", err)
	}

	for _, e := range o.doc.Endpoints {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("overview file %s: %w", path, err)
		}
	}

	return o, nil
}

// Save writes the overview atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (o *Overview) Save() error {
	data, err := xml.MarshalIndent(&o.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling overview: %w", err)
	}

	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	tmp := filepath.Join(filepath.Dir(o.path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(o.path), uuid.NewString()))

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing overview temp file: %w", err)
	}

	if err := os.Rename(tmp, o.path); err != nil {
		os.Remove(tmp)

		return fmt.Errorf("replacing overview file: %w", err)
	}

	return nil
}

// Endpoints returns the endpoints in file order.
func (o *Overview) Endpoints() []*Endpoint {
	return o.doc.Endpoints
}

// Endpoint looks up the endpoint matching URI and group, creating it when it
// does not exist yet.
func (o *Overview) Endpoint(uri, group string) *Endpoint {
	for _, e := range o.doc.Endpoints {
		if e.URI == uri && e.Group == group {
			return e
		}
	}

	e := &Endpoint{URI: uri, Group: group, AllowIncremental: true}
	o.doc.Endpoints = append(o.doc.Endpoints, e)

	return e
}
