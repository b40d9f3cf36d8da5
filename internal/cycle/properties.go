package cycle

import "time"

// Mode selects how the cycle treats endpoints.
type Mode string

// Harvest modes.
const (
	ModeNormal  Mode = "normal"
	ModeRetry   Mode = "retry"
	ModeRefresh Mode = "refresh"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeRetry, ModeRefresh:
		return true
	}

	return false
}

// Scenario names.
const (
	ScenarioListIdentifiers = "ListIdentifiers"
	ScenarioListRecords     = "ListRecords"
)

// Properties are the cycle-wide harvesting properties.
type Properties struct {
	Mode     Mode
	Scenario string
	Limit    int
	From     time.Time
}
