package integrity

import (
	"fmt"
	"math"
	"time"
)

// CheckStatus is one line of a flattened report.
type CheckStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // PASS or FAIL
	Message string `json:"message"`
}

// Report is the human-readable summary of a verification, suitable for an
// administrator reviewing a plugin before enabling it.
type Report struct {
	PluginId        string        `json:"pluginId"`
	GeneratedAt     time.Time     `json:"generatedAt"`
	TrustScore      int           `json:"trustScore"` // rounded for display only
	RiskLevel       RiskLevel     `json:"riskLevel"`
	Passed          bool          `json:"passed"`
	Checks          []CheckStatus `json:"checks"`
	Recommendations []string      `json:"recommendations"`
	Summary         string        `json:"summary"`
}

// NewReport flattens a CheckResult into a timestamped report.
func NewReport(pluginId string, res *CheckResult) *Report {
	r := &Report{
		PluginId:        pluginId,
		GeneratedAt:     time.Now(),
		TrustScore:      int(math.Round(res.TrustScore)),
		RiskLevel:       res.RiskLevel,
		Passed:          res.Valid,
		Recommendations: res.Recommendations,
	}
	for _, c := range res.Checks {
		status := "FAIL"
		if c.Passed {
			status = "PASS"
		}
		r.Checks = append(r.Checks, CheckStatus{Name: c.Name, Status: status, Message: c.Message})
	}

	verdict := "FAIL"
	if res.Valid {
		verdict = "PASS"
	}
	r.Summary = fmt.Sprintf("plugin %s: %s (trust %d%%, risk %s, %d/%d checks passed)",
		pluginId, verdict, r.TrustScore, res.RiskLevel, passedCount(res.Checks), len(res.Checks))
	return r
}

func passedCount(checks []Check) int {
	n := 0
	for _, c := range checks {
		if c.Passed {
			n++
		}
	}
	return n
}
