package sandbox

import (
	"fmt"
	"strings"
)

// RequestCheck is the verdict on an outbound request payload, produced
// before the payload leaves the host.
type RequestCheck struct {
	Secure    bool     `json:"secure"`
	Issues    []string `json:"issues,omitempty"`
	RiskLevel string   `json:"riskLevel"`
}

// Tokens whose presence alone makes the payload critical. These are the
// code-injection family.
var criticalPayloadTokens = []string{
	"eval(",
	"new function(",
	"function(",
	"javascript:",
	"vbscript:",
	"document.",
	"window.",
	"__proto__",
	"constructor[",
	"<script",
}

// SQL-injection style tokens. Individually weaker signals than the critical
// family; risk scales with how many match.
var sqlPayloadTokens = []string{
	"union select",
	"drop table",
	"insert into",
	"delete from",
	"truncate table",
	"exec(",
	"xp_cmdshell",
	"' or '1'='1",
	"\" or \"1\"=\"1",
}

// ValidateRequest inspects a serialized payload for size and injection
// indicators. Any match yields a non-secure verdict with itemized issues.
func (e *Executor) ValidateRequest(pluginId string, payload []byte) *RequestCheck {
	check := &RequestCheck{Secure: true, RiskLevel: "low"}

	if int64(len(payload)) > e.cfg.MaxPayloadBytes {
		check.Secure = false
		check.Issues = append(check.Issues,
			fmt.Sprintf("payload size %d exceeds the %d byte ceiling", len(payload), e.cfg.MaxPayloadBytes))
		check.RiskLevel = "high"
		e.violation(pluginId, "payload-size", check.Issues[0])
		return check
	}

	lower := strings.ToLower(string(payload))

	criticalHits := 0
	for _, token := range criticalPayloadTokens {
		if strings.Contains(lower, token) {
			criticalHits++
			check.Issues = append(check.Issues, fmt.Sprintf("potentially malicious content: %q", token))
		}
	}
	sqlHits := 0
	for _, token := range sqlPayloadTokens {
		if strings.Contains(lower, token) {
			sqlHits++
			check.Issues = append(check.Issues, fmt.Sprintf("sql injection indicator: %q", token))
		}
	}

	if len(check.Issues) == 0 {
		return check
	}

	check.Secure = false
	switch {
	case criticalHits > 0:
		check.RiskLevel = "critical"
	case sqlHits > 2:
		check.RiskLevel = "high"
	default:
		check.RiskLevel = "medium"
	}

	e.violation(pluginId, "payload-content", strings.Join(check.Issues, "; "))
	return check
}
