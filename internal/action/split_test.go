package action

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

const envelopeXML = `<?xml version="1.0" encoding="UTF-8"?>
<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListRecords>
    <record>
      <header><identifier>a</identifier></header>
      <metadata><dc><title>Alpha</title></dc></metadata>
    </record>
    <record>
      <header><identifier>b</identifier></header>
      <metadata><dc><title>Beta</title></dc></metadata>
    </record>
    <record>
      <header><identifier>c</identifier></header>
      <metadata><dc><title>Gamma</title></dc></metadata>
    </record>
  </ListRecords>
</OAI-PMH>`

func envelopeRecord(t *testing.T, raw string) *metadata.Record {
	t.Helper()

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(raw))

	return metadata.NewFactory().NewEnvelope("oai_dc", doc, "Alpha")
}

func TestSplit_EmitsOneRecordPerElement(t *testing.T) {
	split := NewSplit(logger.Discard())

	out, ok := split.Perform([]*metadata.Record{envelopeRecord(t, envelopeXML)})
	require.True(t, ok)
	require.Len(t, out, 3)

	for i, want := range []string{"a", "b", "c"} {
		rec := out[i]
		assert.Equal(t, want, rec.ID)
		assert.Equal(t, "oai_dc", rec.Prefix)
		assert.Equal(t, "Alpha", rec.Origin)
		assert.False(t, rec.Envelope)
		assert.False(t, rec.List)
		require.NotNil(t, rec.Doc.Root())
		assert.Equal(t, "record", rec.Doc.Root().Tag)
	}
}

func TestSplit_DocumentsAreIndependent(t *testing.T) {
	split := NewSplit(logger.Discard())

	envelope := envelopeRecord(t, envelopeXML)

	out, ok := split.Perform([]*metadata.Record{envelope})
	require.True(t, ok)

	// mutating one split record must not leak into its siblings or the
	// envelope
	title := metadata.FirstDescendant(out[0].Doc.Root(), "title")
	require.NotNil(t, title)
	title.SetText("Mutated")

	other := metadata.FirstDescendant(out[1].Doc.Root(), "title")
	require.NotNil(t, other)
	assert.Equal(t, "Beta", other.Text())

	originals := metadata.FindDescendants(envelope.Doc.Root(), "title")
	require.NotEmpty(t, originals)
	assert.Equal(t, "Alpha", originals[0].Text())
}

func TestSplit_EmptyEnvelopeFails(t *testing.T) {
	const empty = `<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <ListRecords></ListRecords>
</OAI-PMH>`

	split := NewSplit(logger.Discard())

	out, ok := split.Perform([]*metadata.Record{envelopeRecord(t, empty)})
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestSplit_Equality(t *testing.T) {
	a := NewSplit(logger.Discard())
	b := NewSplit(logger.Discard())

	assert.True(t, a.Equal(b), "all split actions are equal")
	assert.False(t, a.Equal(NewStrip(logger.Discard())))
	assert.Equal(t, "split", a.String())
}
