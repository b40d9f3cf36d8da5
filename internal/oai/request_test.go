package oai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestURL(t *testing.T) {
	r := &Request{
		BaseURL:        "https://repo.example.org/oai",
		Verb:           VerbListRecords,
		MetadataPrefix: "oai_dc",
		From:           "2024-01-01T00:00:00Z",
	}

	u, err := r.URL()
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "ListRecords", q.Get("verb"))
	assert.Equal(t, "oai_dc", q.Get("metadataPrefix"))
	assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("from"))
}

func TestRequestURL_TokenOnly(t *testing.T) {
	r := &Request{
		BaseURL:         "https://repo.example.org/oai",
		Verb:            VerbListRecords,
		MetadataPrefix:  "oai_dc",
		From:            "2024-01-01T00:00:00Z",
		ResumptionToken: "page-2",
	}

	u, err := r.URL()
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "ListRecords", q.Get("verb"))
	assert.Equal(t, "page-2", q.Get("resumptionToken"))
	assert.Empty(t, q.Get("metadataPrefix"))
	assert.Empty(t, q.Get("from"))
}

func TestRequestURL_MissingVerb(t *testing.T) {
	_, err := (&Request{BaseURL: "https://repo.example.org/oai"}).URL()
	assert.ErrorIs(t, err, ErrMissingVerb)
}

func TestSetFrom(t *testing.T) {
	var r Request

	r.SetFrom(time.Time{})
	assert.Empty(t, r.From)

	r.SetFrom(time.Unix(0, 0))
	assert.Empty(t, r.From)

	r.SetFrom(time.Date(2024, 2, 10, 12, 30, 0, 0, time.UTC))
	assert.Equal(t, "2024-02-10T12:30:00Z", r.From)
}
