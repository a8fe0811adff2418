package execution

import (
	"strings"
	"testing"

	"bitget-fleet/internal/domain"
)

func TestSummarizeCounts(t *testing.T) {
	outcomes := []domain.ExecutionOutcome{
		{AccountName: "a", Succeeded: true, OrderID: "1", Message: "ok"},
		{AccountName: "b", Succeeded: false, ErrKind: domain.ErrKindAuth, Message: "bad signature"},
		{AccountName: "c", Succeeded: true, Message: "ok"},
	}

	report := Summarize(outcomes)
	if report.Total != 3 {
		t.Errorf("total = %d, want 3", report.Total)
	}
	if report.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", report.Succeeded)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
}

func TestSummarizeLineOrderMatchesInput(t *testing.T) {
	outcomes := []domain.ExecutionOutcome{
		{AccountName: "main", Succeeded: true, Message: "ok"},
		{AccountName: "sub-1", Succeeded: false, ErrKind: domain.ErrKindNetwork, Message: "down"},
		{AccountName: "sub-2", Succeeded: true, Message: "ok"},
	}

	report := Summarize(outcomes)
	for i, name := range []string{"main", "sub-1", "sub-2"} {
		if !strings.Contains(report.Lines[i], name) {
			t.Errorf("lines[%d] = %q, want account %s", i, report.Lines[i], name)
		}
	}
}

func TestSummarizeLineContent(t *testing.T) {
	report := Summarize([]domain.ExecutionOutcome{
		{AccountName: "a", Succeeded: true, OrderID: "1024", Message: "submitted"},
		{AccountName: "b", Succeeded: false, ErrKind: domain.ErrKindOrderRejected, Message: "rejected"},
	})

	if !strings.Contains(report.Lines[0], "orderId=1024") {
		t.Errorf("success line missing order id: %q", report.Lines[0])
	}
	if !strings.HasPrefix(report.Lines[0], "✓") {
		t.Errorf("success line missing marker: %q", report.Lines[0])
	}
	if !strings.HasPrefix(report.Lines[1], "✗") {
		t.Errorf("failure line missing marker: %q", report.Lines[1])
	}
	if !strings.Contains(report.Lines[1], string(domain.ErrKindOrderRejected)) {
		t.Errorf("failure line missing error kind: %q", report.Lines[1])
	}
}

func TestSummarizeIsPure(t *testing.T) {
	outcomes := []domain.ExecutionOutcome{
		{AccountName: "a", Succeeded: true, Message: "ok"},
	}

	first := Summarize(outcomes)
	second := Summarize(outcomes)
	if first.Total != second.Total || first.Lines[0] != second.Lines[0] {
		t.Error("Summarize should be deterministic for identical input")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	report := Summarize(nil)
	if report.Total != 0 || len(report.Lines) != 0 {
		t.Errorf("empty input should yield empty report, got %+v", report)
	}
}
