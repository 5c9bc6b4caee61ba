package entities

// Schema names the columns of a prepared encounter table.
type Schema struct {
	IDColumn      string
	PatientColumn string
	TargetColumn  string
	Categorical   []string
	Numeric       []string
}

// Columns returns the prepared-table column order: identifiers,
// categorical attributes, numeric attributes, then the target.
func (s Schema) Columns() []string {
	cols := make([]string, 0, 3+len(s.Categorical)+len(s.Numeric))
	cols = append(cols, s.IDColumn)
	if s.PatientColumn != "" {
		cols = append(cols, s.PatientColumn)
	}
	cols = append(cols, s.Categorical...)
	cols = append(cols, s.Numeric...)
	cols = append(cols, s.TargetColumn)
	return cols
}

// Encounter is one hospital encounter after preparation. Categories and
// Numerics are aligned with the Schema's Categorical and Numeric lists.
type Encounter struct {
	EncounterID   string    `json:"encounter_id"`
	PatientNbr    string    `json:"patient_nbr"`
	Categories    []string  `json:"categories"`
	Numerics      []float64 `json:"numerics"`
	Readmitted30d int       `json:"readmitted_30d_flag"`
}

// ScoredEncounter is an encounter with its risk score and tier for one run.
type ScoredEncounter struct {
	Encounter
	Probability float64  `json:"predicted_probability"`
	Tier        RiskTier `json:"risk_tier"`
}
