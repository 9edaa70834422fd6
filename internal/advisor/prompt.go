package advisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sequoia/internal/domain"
)

const analystBriefing = `You are an assistant for a quant research team running two bagging ensembles over triple-barrier labeled price bars: one sampled with sequential bootstrap (seqboot_bagging) and one with the standard uniform bootstrap (standard_bagging).

Background you can rely on:
- Labels come from a triple-barrier scheme on CUSUM-filtered events; the meta-label is 1 when the side call was profitable and 0 otherwise.
- Sequential bootstrap draws training samples to reduce overlap between concurrent labels, so its out-of-bag (OOB) score is usually a less optimistic, more honest estimate than the standard bootstrap's.
- Each run stores OOB score, test accuracy, precision, recall, F1 and AUC.

Rules:
- Always reference the specific runs and metrics provided below. Never fabricate numbers.
- When comparing the two ensembles, compare the same metric across the same training window.
- If the data needed to answer is not in the context, say so plainly.
- Keep responses short and concrete; the reader is a researcher, not a layperson.`

func BuildSystemPrompt(runContext string) string {
	var sb strings.Builder
	sb.WriteString(analystBriefing)
	sb.WriteString("\n\n--- STORED RUN DATA (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(runContext)
	return sb.String()
}

func FormatRunContext(runs []domain.ModelVersion, preds []domain.Prediction) string {
	var sb strings.Builder

	if len(runs) > 0 {
		sb.WriteString("\nTraining runs:\n")
		for _, r := range runs {
			sb.WriteString(fmt.Sprintf("  %s v%d trained %s window %s..%s active=%v metrics=%s\n",
				r.ModelKey, r.Version,
				r.TrainedAt.UTC().Format("2006-01-02"),
				r.TrainedFrom.UTC().Format("2006-01-02"),
				r.TrainedTo.UTC().Format("2006-01-02"),
				r.IsActive, compactJSON(r.MetricsJSON)))
		}
	}

	if len(preds) > 0 {
		sb.WriteString("\nRecent predictions:\n")
		for _, p := range preds {
			sb.WriteString(fmt.Sprintf("  %s %s %s p=%.3f\n",
				p.ModelKey, p.Symbol, p.EventTime.UTC().Format("2006-01-02 15:04"), p.Prob))
		}
	}

	if sb.Len() == 0 {
		return "No training runs stored yet."
	}
	return sb.String()
}

func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
