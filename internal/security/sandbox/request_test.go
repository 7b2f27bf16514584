package sandbox

import (
	"strings"
	"testing"
)

func TestValidateRequestCleanPayload(t *testing.T) {
	e := testExecutor(10)
	check := e.ValidateRequest("p1", []byte(`{"file":"receipt.csv","size":1024}`))
	if !check.Secure {
		t.Fatalf("clean payload flagged: %v", check.Issues)
	}
	if check.RiskLevel != "low" {
		t.Fatalf("expected low risk, got %s", check.RiskLevel)
	}
}

func TestValidateRequestEvalIsCritical(t *testing.T) {
	e := testExecutor(10)
	check := e.ValidateRequest("p1", []byte(`{"cb":"eval(atob('...'))"}`))
	if check.Secure {
		t.Fatalf("eval( payload passed")
	}
	if check.RiskLevel != "critical" {
		t.Fatalf("expected critical risk, got %s", check.RiskLevel)
	}
	found := false
	for _, issue := range check.Issues {
		if strings.Contains(issue, "malicious content") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an issue mentioning malicious content, got %v", check.Issues)
	}
}

func TestValidateRequestSqlTokens(t *testing.T) {
	e := testExecutor(10)

	check := e.ValidateRequest("p1", []byte(`{"q":"1 UNION SELECT password FROM users"}`))
	if check.Secure {
		t.Fatalf("sql payload passed")
	}
	if check.RiskLevel != "medium" {
		t.Fatalf("single sql token should be medium, got %s", check.RiskLevel)
	}

	check = e.ValidateRequest("p1", []byte(`union select; drop table users; delete from logs`))
	if check.RiskLevel != "high" {
		t.Fatalf("many sql tokens should be high, got %s", check.RiskLevel)
	}
}

func TestValidateRequestOversizedPayload(t *testing.T) {
	e := testExecutor(10) // 1024 byte ceiling
	check := e.ValidateRequest("p1", []byte(strings.Repeat("a", 2048)))
	if check.Secure {
		t.Fatalf("oversized payload passed")
	}
	if check.RiskLevel != "high" {
		t.Fatalf("expected high risk, got %s", check.RiskLevel)
	}
	if len(check.Issues) != 1 || !strings.Contains(check.Issues[0], "ceiling") {
		t.Fatalf("expected a size issue, got %v", check.Issues)
	}
}

func TestValidateRequestCaseInsensitive(t *testing.T) {
	e := testExecutor(10)
	check := e.ValidateRequest("p1", []byte(`EVAL(window.NAME)`))
	if check.Secure {
		t.Fatalf("uppercase variants must still match")
	}
}
