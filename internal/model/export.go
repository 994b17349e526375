package model

import "time"

// ResultsExport is the top-level JSON structure for the results export.
type ResultsExport struct {
	Sheet      string          `json:"sheet"`
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Passed     int             `json:"passed"`
	Results    []AttemptResult `json:"results"`
}

// NewResultsExport builds an export document and its pass count.
func NewResultsExport(sheet string, results []AttemptResult, now time.Time) ResultsExport {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return ResultsExport{
		Sheet:      sheet,
		ExportedAt: now,
		Count:      len(results),
		Passed:     passed,
		Results:    results,
	}
}
