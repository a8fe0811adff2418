package execution

import (
	"fmt"

	"bitget-fleet/internal/domain"
)

// Summarize 将全部账户结果合并为操作员可读的报告。
// 纯函数：不做任何 I/O，相同输入必得相同报告。
func Summarize(outcomes []domain.ExecutionOutcome) Report {
	report := Report{
		Total: len(outcomes),
		Lines: make([]string, 0, len(outcomes)),
	}

	for _, outcome := range outcomes {
		if outcome.Succeeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Lines = append(report.Lines, formatLine(outcome))
	}

	return report
}

func formatLine(outcome domain.ExecutionOutcome) string {
	status := "✓"
	if !outcome.Succeeded {
		status = "✗"
	}

	line := fmt.Sprintf("%s %s: %s", status, outcome.AccountName, outcome.Message)
	if outcome.OrderID != "" {
		line += fmt.Sprintf(" [orderId=%s]", outcome.OrderID)
	}
	if !outcome.Succeeded && outcome.ErrKind != "" {
		line += fmt.Sprintf(" (%s)", outcome.ErrKind)
	}
	return line
}
