package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validXML = `<config>
  <cycle mode="normal" scenario="ListRecords" limit="2" from="2024-01-01T00:00:00Z"/>
  <output dir="output"/>
  <overview file="overview.xml"/>
  <logging level="info"/>
  <providers>
    <provider name="Alpha" url="https://alpha.example.org/oai" timeout="30" retries="2">
      <prefix>oai_dc</prefix>
    </provider>
    <provider name="Archive" url="http://archive.example.org/oai" static="true" path="repo.xml"/>
  </providers>
  <sequences>
    <sequence>
      <input prefix="oai_dc" schema="http://www.openarchives.org/OAI/2.0/oai_dc.xsd"/>
      <action type="split"/>
      <action type="strip"/>
      <action type="save"/>
    </sequence>
  </sequences>
</config>`

const validYAML = `cycle:
  mode: normal
  scenario: ListRecords
  limit: 2
output:
  dir: output
overview:
  file: overview.xml
logging:
  level: info
providers:
  - name: Alpha
    url: https://alpha.example.org/oai
    prefixes: [oai_dc]
sequences:
  - input:
      prefix: oai_dc
    actions:
      - type: split
      - type: save
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoadConfig_XML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.xml", validXML))
	require.NoError(t, err)

	assert.Equal(t, "normal", cfg.Cycle.Mode)
	assert.Equal(t, "ListRecords", cfg.Cycle.Scenario)
	assert.Equal(t, 2, cfg.Cycle.Limit)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.FromDate())

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "Alpha", cfg.Providers[0].Name)
	assert.Equal(t, []string{"oai_dc"}, cfg.Providers[0].Prefixes)
	assert.Equal(t, 30*time.Second, cfg.Providers[0].GetTimeout())
	assert.True(t, cfg.Providers[1].IsStatic())
	assert.Equal(t, "repo.xml", cfg.Providers[1].Path)

	require.Len(t, cfg.Sequences, 1)
	assert.Equal(t, "oai_dc", cfg.Sequences[0].Input.Prefix)
	require.Len(t, cfg.Sequences[0].Actions, 3)
	assert.Equal(t, "split", cfg.Sequences[0].Actions[0].Type)
}

func TestLoadConfig_YAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "https://alpha.example.org/oai", cfg.Providers[0].URL)
	require.Len(t, cfg.Sequences, 1)
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "config.toml", validXML))
	assert.ErrorIs(t, err, ErrUnsupportedConfigFile)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.xml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Cycle:    CycleConfig{Mode: "normal", Scenario: "ListRecords", Limit: 1},
			Output:   OutputConfig{Dir: "out"},
			Overview: OverviewConfig{File: "overview.xml"},
			Logging:  LoggingConfig{Level: "info"},
			Providers: []ProviderConfig{
				{URL: "https://alpha.example.org/oai"},
			},
			Sequences: []SequenceConfig{
				{Input: FormatConfig{Prefix: "oai_dc"}, Actions: []ActionConfig{{Type: "save"}}},
			},
		}
	}

	cfg := base()
	cfg.Providers = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoProviders)

	cfg = base()
	cfg.Providers[0].URL = ""
	assert.ErrorIs(t, cfg.Validate(), ErrProviderMissingURL)

	cfg = base()
	cfg.Providers[0].Static = true
	assert.ErrorIs(t, cfg.Validate(), ErrProviderMissingPath)

	cfg = base()
	cfg.Providers[0].Disabled = true
	assert.ErrorIs(t, cfg.Validate(), ErrNoEnabledProviders)

	cfg = base()
	cfg.Sequences = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoSequences)

	cfg = base()
	cfg.Sequences[0].Input.Prefix = ""
	assert.ErrorIs(t, cfg.Validate(), ErrSequenceMissingInput)

	cfg = base()
	cfg.Sequences[0].Actions = nil
	assert.ErrorIs(t, cfg.Validate(), ErrSequenceNoActions)

	cfg = base()
	cfg.Sequences[0].Actions[0].Type = "explode"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownActionType)

	cfg = base()
	cfg.Sequences[0].Actions[0] = ActionConfig{Type: "transform"}
	assert.ErrorIs(t, cfg.Validate(), ErrTransformMissingFile)

	cfg = base()
	cfg.Cycle.Mode = "sometimes"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMode)

	cfg = base()
	cfg.Cycle.Scenario = "ListEverything"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidScenario)

	cfg = base()
	cfg.Cycle.Limit = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidLimit)

	cfg = base()
	cfg.Cycle.From = "yesterday"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidFromDate)

	cfg = base()
	cfg.Output.Dir = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingOutputDir)

	cfg = base()
	cfg.Overview.File = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingOverviewFile)

	cfg = base()
	cfg.Logging.Level = "loud"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidLogLevel)
}

func TestEnabledProviders(t *testing.T) {
	cfg := &Config{
		Providers: []ProviderConfig{
			{URL: "https://a.example.org/oai"},
			{URL: "https://b.example.org/oai", Disabled: true},
			{URL: "https://c.example.org/oai"},
		},
	}

	enabled := cfg.EnabledProviders()
	require.Len(t, enabled, 2)
	assert.Equal(t, "https://a.example.org/oai", enabled[0].URL)
	assert.Equal(t, "https://c.example.org/oai", enabled[1].URL)
}

func TestGetTimeout_Default(t *testing.T) {
	p := ProviderConfig{}
	assert.Equal(t, 60*time.Second, p.GetTimeout())
}
