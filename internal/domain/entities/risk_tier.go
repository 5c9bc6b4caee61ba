package entities

// RiskTier is the tertile of the current scored population a record falls in.
// Tiers are only comparable within a single scoring run.
type RiskTier string

const (
	RiskTierLow    RiskTier = "Low"
	RiskTierMedium RiskTier = "Medium"
	RiskTierHigh   RiskTier = "High"
)

// RiskTiers returns all tiers ordered from lowest to highest risk.
func RiskTiers() []RiskTier {
	return []RiskTier{RiskTierLow, RiskTierMedium, RiskTierHigh}
}

// IsValid checks if the tier value is one of the defined constants.
func (t RiskTier) IsValid() bool {
	switch t {
	case RiskTierLow, RiskTierMedium, RiskTierHigh:
		return true
	}
	return false
}

// Rank returns 0, 1, 2 for Low, Medium, High and -1 otherwise.
func (t RiskTier) Rank() int {
	switch t {
	case RiskTierLow:
		return 0
	case RiskTierMedium:
		return 1
	case RiskTierHigh:
		return 2
	}
	return -1
}
