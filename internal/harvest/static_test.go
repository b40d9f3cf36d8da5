package harvest

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oaiharvest/internal/action"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/provider"
)

func epochTime() time.Time {
	return time.Unix(0, 0).UTC()
}

func staticProviderWithRecords(t *testing.T) *provider.StaticProvider {
	t.Helper()

	archive := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Repository xmlns="http://www.openarchives.org/OAI/2.0/static-repository">
  <Identify>
    <repositoryName>Alpha</repositoryName>
  </Identify>
  <ListMetadataFormats>
    <metadataFormat>
      <metadataPrefix>oai_dc</metadataPrefix>
      <schema>http://www.openarchives.org/OAI/2.0/oai_dc.xsd</schema>
    </metadataFormat>
  </ListMetadataFormats>
  <ListRecords metadataPrefix="oai_dc">
    %s
    %s
    %s
  </ListRecords>
</Repository>`, recordA, recordB, recordC)

	path := filepath.Join(t.TempDir(), "repo.xml")
	require.NoError(t, os.WriteFile(path, []byte(archive), 0644))

	sp, err := provider.NewStatic("Alpha", "http://static.example.org/oai", path, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, sp.Init(context.Background()))

	return sp
}

func TestStaticPrefixHarvesting(t *testing.T) {
	sp := staticProviderWithRecords(t)
	log := logger.Discard()

	h := NewStaticPrefixHarvesting(sp, action.Format{Prefix: "oai_dc"}, log)
	require.True(t, h.Request(context.Background()))
	require.True(t, h.ProcessResponse())
	assert.True(t, h.FullyParsed())
	assert.Equal(t, []string{"oai_dc"}, h.Prefixes())
}

func TestStaticPrefixHarvesting_NoMatch(t *testing.T) {
	sp := staticProviderWithRecords(t)
	log := logger.Discard()

	h := NewStaticPrefixHarvesting(sp, action.Format{Prefix: "cmdi"}, log)
	require.True(t, h.Request(context.Background()))
	require.True(t, h.ProcessResponse())
	assert.Empty(t, h.Prefixes())
}

func TestStaticRecordListHarvesting(t *testing.T) {
	sp := staticProviderWithRecords(t)
	log := logger.Discard()

	src := NewStaticRecordListHarvesting(sp, []string{"oai_dc"}, log)

	rec, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Envelope)
	assert.True(t, rec.List)
	assert.Equal(t, "oai_dc", rec.Prefix)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Equal(t, StateDone, src.State())
}

func TestStaticRecordListHarvesting_MissingPrefixSkipped(t *testing.T) {
	sp := staticProviderWithRecords(t)
	log := logger.Discard()

	src := NewStaticRecordListHarvesting(sp, []string{"cmdi", "oai_dc"}, log)

	rec, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "oai_dc", rec.Prefix)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, ErrDone)
}

// A live provider and a static provider backed by the same records must
// produce byte-identical save trees.
func TestStaticHarvestEquivalence(t *testing.T) {
	repo := newFakeRepo()
	srv := httptest.NewServer(repo.handler())
	defer srv.Close()

	log := logger.Discard()

	liveRoot := t.TempDir()
	p := liveProvider(t, srv)
	liveSeq := saveSequence(t, liveRoot)
	liveScenario := NewScenario("Alpha", liveSeq, log)

	prefixes := liveScenario.GetPrefixes(context.Background(),
		NewFormatHarvesting(p, liveSeq.Input, log))
	require.NotEmpty(t, prefixes)
	require.True(t, liveScenario.ListRecords(context.Background(),
		NewRecordListHarvesting(p, prefixes, epochTime(), log)))

	staticRoot := t.TempDir()
	sp := staticProviderWithRecords(t)
	staticSeq := saveSequence(t, staticRoot)
	staticScenario := NewScenario("Alpha", staticSeq, log)

	staticPrefixes := staticScenario.GetPrefixes(context.Background(),
		NewStaticPrefixHarvesting(sp, staticSeq.Input, log))
	require.Equal(t, prefixes, staticPrefixes)
	require.True(t, staticScenario.ListRecords(context.Background(),
		NewStaticRecordListHarvesting(sp, staticPrefixes, log)))

	for _, id := range []string{"oai_repo_a", "oai_repo_b", "oai_repo_c"} {
		rel := filepath.Join("Alpha", "oai_dc", id+".xml")

		liveData, err := os.ReadFile(filepath.Join(liveRoot, rel))
		require.NoError(t, err)

		staticData, err := os.ReadFile(filepath.Join(staticRoot, rel))
		require.NoError(t, err)

		assert.Equal(t, string(liveData), string(staticData), "record %s differs", id)
	}
}
