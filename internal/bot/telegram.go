package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sequoia/internal/domain"
	"sequoia/internal/ml/common"

	tele "gopkg.in/telebot.v3"
)

type ModelRegistry interface {
	GetLatestModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelKey string, limit int) ([]domain.ModelVersion, error)
}

type PredictionReader interface {
	ListRecent(ctx context.Context, modelKey, symbol string, limit int) ([]domain.Prediction, error)
}

func StartTelegramBot(registry ModelRegistry, predictions PredictionReader) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/oob", func(c tele.Context) error {
		return c.Send(oobMessage(context.Background(), registry))
	})

	b.Handle("/runs", func(c tele.Context) error {
		key := common.ModelKeySequential
		if args := c.Args(); len(args) > 0 {
			key = strings.ToLower(args[0])
		}
		return c.Send(runsMessage(context.Background(), registry, key))
	})

	b.Handle("/predict", func(c tele.Context) error {
		return c.Send(predictMessage(context.Background(), predictions))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func oobMessage(ctx context.Context, registry ModelRegistry) string {
	var lines []string
	for _, key := range []string{common.ModelKeySequential, common.ModelKeyStandard} {
		m, err := registry.GetLatestModel(ctx, key)
		if err != nil {
			return fmt.Sprintf("Error fetching model %s: %v", key, err)
		}
		if m == nil {
			lines = append(lines, fmt.Sprintf("%s: no trained versions yet", key))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s v%d\nOOB: %s  AUC: %s\nactive: %v",
			m.ModelKey, m.Version, metricString(m.MetricsJSON, "oob_score"), metricString(m.MetricsJSON, "auc"), m.IsActive))
	}
	return strings.Join(lines, "\n\n")
}

func runsMessage(ctx context.Context, registry ModelRegistry, modelKey string) string {
	versions, err := registry.ListModelVersions(ctx, modelKey, 5)
	if err != nil {
		return fmt.Sprintf("Error listing runs for %s: %v", modelKey, err)
	}
	if len(versions) == 0 {
		return fmt.Sprintf("No runs for %s\nKeys: %s, %s", modelKey, common.ModelKeySequential, common.ModelKeyStandard)
	}
	lines := []string{fmt.Sprintf("Last %d runs for %s:", len(versions), modelKey)}
	for _, v := range versions {
		lines = append(lines, fmt.Sprintf("v%d  %s  OOB %s  AUC %s",
			v.Version, v.TrainedAt.UTC().Format("2006-01-02 15:04"),
			metricString(v.MetricsJSON, "oob_score"), metricString(v.MetricsJSON, "auc")))
	}
	return strings.Join(lines, "\n")
}

func predictMessage(ctx context.Context, predictions PredictionReader) string {
	preds, err := predictions.ListRecent(ctx, common.ModelKeySequential, domain.DefaultSymbol, 3)
	if err != nil {
		return fmt.Sprintf("Error fetching predictions: %v", err)
	}
	if len(preds) == 0 {
		return "No predictions yet"
	}
	lines := []string{fmt.Sprintf("Latest %s predictions (%s):", domain.DefaultSymbol, common.ModelKeySequential)}
	for _, p := range preds {
		lines = append(lines, fmt.Sprintf("%s  p=%.3f", p.EventTime.UTC().Format("2006-01-02 15:04"), p.Prob))
	}
	return strings.Join(lines, "\n")
}

func metricString(metricsJSON, key string) string {
	var m map[string]float64
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return "?"
	}
	v, ok := m[key]
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%.4f", v)
}
