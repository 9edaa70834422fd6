package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/common"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeRuns struct {
	byKey map[string][]domain.ModelVersion
}

func (f *fakeRuns) ListModelVersions(_ context.Context, modelKey string, _ int) ([]domain.ModelVersion, error) {
	return f.byKey[modelKey], nil
}

type fakePreds struct {
	preds []domain.Prediction
}

func (f *fakePreds) ListRecent(_ context.Context, _, _ string, _ int) ([]domain.Prediction, error) {
	return f.preds, nil
}

func testModel() Model {
	runs := &fakeRuns{byKey: map[string][]domain.ModelVersion{
		common.ModelKeySequential: {
			{Version: 2, TrainedAt: time.Date(2025, 5, 2, 1, 0, 0, 0, time.UTC), MetricsJSON: `{"oob_score":0.91,"auc":0.88,"f1":0.84}`, IsActive: true},
		},
	}}
	preds := &fakePreds{preds: []domain.Prediction{
		{Symbol: "SPX", EventTime: time.Date(2025, 5, 2, 14, 0, 0, 0, time.UTC), Prob: 0.7},
	}}
	m := NewModel(Services{Runs: runs, Predictions: preds, Username: "quant"})
	m.SetSize(120, 40)
	return m
}

func runCmds(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = runCmds(t, m, c)
		}
		return m
	}
	next, nextCmd := m.Update(msg)
	return runCmds(t, next.(Model), nextCmd)
}

func TestModelLoadsRunsAndPredictions(t *testing.T) {
	m := testModel()
	m = runCmds(t, m, m.Init())

	view := m.View()
	if !strings.Contains(view, "model=seqboot_bagging") {
		t.Fatalf("missing header: %s", view)
	}
	if !strings.Contains(view, "0.9100") {
		t.Fatalf("missing OOB cell: %s", view)
	}
	if !strings.Contains(view, "2025-05-02 14:00") {
		t.Fatalf("missing prediction line: %s", view)
	}
}

func TestTabSwitchesModelKey(t *testing.T) {
	m := testModel()
	m = runCmds(t, m, m.Init())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = runCmds(t, next.(Model), cmd)

	if m.modelKey() != common.ModelKeyStandard {
		t.Fatalf("expected standard key after tab, got %s", m.modelKey())
	}
	if !strings.Contains(m.View(), "model=standard_bagging") {
		t.Fatalf("view not switched: %s", m.View())
	}
}

func TestQuitKey(t *testing.T) {
	m := testModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestMetricCell(t *testing.T) {
	if got := metricCell(`{"auc":0.5}`, "oob_score"); got != "-" {
		t.Fatalf("expected - for missing key, got %s", got)
	}
	if got := metricCell("bad", "auc"); got != "-" {
		t.Fatalf("expected - for bad json, got %s", got)
	}
	if got := metricCell(`{"auc":0.875}`, "auc"); got != "0.8750" {
		t.Fatalf("unexpected cell: %s", got)
	}
}
