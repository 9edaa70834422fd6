package advisor

import (
	"context"
	"fmt"
	"log"

	"sequoia/internal/domain"
	"sequoia/internal/ml/common"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// RunQuerier provides training run data for the advisor's context.
type RunQuerier interface {
	GetLatestModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelKey string, limit int) ([]domain.ModelVersion, error)
}

// PredictionQuerier provides recent predictions for the advisor's context.
type PredictionQuerier interface {
	ListRecent(ctx context.Context, modelKey, symbol string, limit int) ([]domain.Prediction, error)
}

type AdvisorService struct {
	tracer      trace.Tracer
	llm         LLMClient
	runs        RunQuerier
	predictions PredictionQuerier
	model       string
	maxRuns     int
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	runs RunQuerier,
	predictions PredictionQuerier,
	model string,
	maxRuns int,
) *AdvisorService {
	if maxRuns <= 0 {
		maxRuns = 5
	}
	return &AdvisorService{
		tracer:      tracer,
		llm:         llm,
		runs:        runs,
		predictions: predictions,
		model:       model,
		maxRuns:     maxRuns,
	}
}

// ExplainRun answers a question about the latest training runs, grounding
// the model in the stored run metrics and recent predictions.
func (s *AdvisorService) ExplainRun(ctx context.Context, question string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.explain-run")
	defer span.End()

	runContext, err := s.gatherContext(ctx)
	if err != nil {
		log.Printf("failed to gather run context: %v", err)
		runContext = "Run data temporarily unavailable."
	}

	systemPrompt := BuildSystemPrompt(runContext)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(question),
	}

	reply, err := s.callLLM(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}
	return reply, nil
}

func (s *AdvisorService) gatherContext(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	var runs []domain.ModelVersion
	for _, key := range []string{common.ModelKeySequential, common.ModelKeyStandard} {
		versions, err := s.runs.ListModelVersions(ctx, key, s.maxRuns)
		if err != nil {
			return "", err
		}
		runs = append(runs, versions...)
	}

	var preds []domain.Prediction
	if s.predictions != nil {
		p, err := s.predictions.ListRecent(ctx, common.ModelKeySequential, domain.DefaultSymbol, 5)
		if err == nil {
			preds = p
		}
	}

	return FormatRunContext(runs, preds), nil
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
