package publish

import "github.com/samber/lo"

// Summary folds a result list into the aggregate the response layer
// reports.
type Summary struct {
	SuccessCount int  `json:"success_count"`
	AllValid     bool `json:"all_valid"`
}

// Summarize is pure: AllValid only means anything for dry-run jobs,
// where every result must be validated.
func Summarize(results []PlatformResult) Summary {
	return Summary{
		SuccessCount: lo.CountBy(results, func(r PlatformResult) bool { return r.Status == StatusSuccess }),
		AllValid:     lo.EveryBy(results, func(r PlatformResult) bool { return r.Status == StatusValidated }),
	}
}
