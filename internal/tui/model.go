package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/common"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// RunQuerier provides training run history for the dashboard.
type RunQuerier interface {
	ListModelVersions(ctx context.Context, modelKey string, limit int) ([]domain.ModelVersion, error)
}

// PredictionQuerier provides recent predictions for the dashboard.
type PredictionQuerier interface {
	ListRecent(ctx context.Context, modelKey, symbol string, limit int) ([]domain.Prediction, error)
}

type Services struct {
	Runs        RunQuerier
	Predictions PredictionQuerier
	Username    string
}

type (
	msgRuns  []domain.ModelVersion
	msgPreds []domain.Prediction
	msgErr   error
)

var modelKeys = []string{common.ModelKeySequential, common.ModelKeyStandard}

type Model struct {
	svc      Services
	keyIndex int
	runs     table.Model
	preds    []domain.Prediction
	err      error

	width  int
	height int
	ready  bool
}

func NewModel(svc Services) Model {
	cols := []table.Column{
		{Title: "Ver", Width: 5},
		{Title: "Trained", Width: 17},
		{Title: "OOB", Width: 8},
		{Title: "AUC", Width: 8},
		{Title: "F1", Width: 8},
		{Title: "Active", Width: 7},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	return Model{svc: svc, runs: t}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
}

func (m Model) modelKey() string {
	return modelKeys[m.keyIndex]
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchRuns(), m.fetchPredictions())
}

func (m Model) fetchRuns() tea.Cmd {
	key := m.modelKey()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runs, err := m.svc.Runs.ListModelVersions(ctx, key, 20)
		if err != nil {
			return msgErr(err)
		}
		return msgRuns(runs)
	}
}

func (m Model) fetchPredictions() tea.Cmd {
	key := m.modelKey()
	return func() tea.Msg {
		if m.svc.Predictions == nil {
			return msgPreds(nil)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		preds, err := m.svc.Predictions.ListRecent(ctx, key, domain.DefaultSymbol, 10)
		if err != nil {
			return msgErr(err)
		}
		return msgPreds(preds)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.keyIndex = (m.keyIndex + 1) % len(modelKeys)
			m.err = nil
			return m, tea.Batch(m.fetchRuns(), m.fetchPredictions())
		case "r":
			m.err = nil
			return m, tea.Batch(m.fetchRuns(), m.fetchPredictions())
		}
		var cmd tea.Cmd
		m.runs, cmd = m.runs.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case msgRuns:
		m.runs.SetRows(runRows(msg))
		return m, nil

	case msgPreds:
		m.preds = msg
		return m, nil

	case msgErr:
		m.err = msg
		return m, nil
	}
	return m, nil
}

func runRows(runs []domain.ModelVersion) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		active := ""
		if r.IsActive {
			active = "yes"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("v%d", r.Version),
			r.TrainedAt.UTC().Format("2006-01-02 15:04"),
			metricCell(r.MetricsJSON, "oob_score"),
			metricCell(r.MetricsJSON, "auc"),
			metricCell(r.MetricsJSON, "f1"),
			active,
		})
	}
	return rows
}

func metricCell(metricsJSON, key string) string {
	var m map[string]float64
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return "-"
	}
	v, ok := m[key]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
