package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"logi-match/internal/llm"
	"logi-match/internal/metrics"
)

var (
	ErrQuestionEmpty           = errors.New("question is empty")
	ErrAskServiceNotConfigured = errors.New("ask service not configured")
)

const askPromptTemplate = `You are an expert in the freight transport and logistics services industry.
Answer the following question kindly and accurately.

Question: %s`

// Answer es la respuesta del asistente de preguntas.
type Answer struct {
	Answer    string    `json:"answer"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// AskService responde preguntas del sector transporte con un LLM.
type AskService struct {
	logger *zap.Logger
	client llm.LLMClient
	now    func() time.Time
}

func NewAskService(logger *zap.Logger, client llm.LLMClient) *AskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskService{logger: logger, client: client, now: time.Now}
}

func (s *AskService) Ask(ctx context.Context, question string) (Answer, error) {
	if s == nil || s.client == nil {
		return Answer{}, ErrAskServiceNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrQuestionEmpty
	}

	text, err := s.client.Generate(ctx, fmt.Sprintf(askPromptTemplate, question))
	if err != nil {
		metrics.AIQuestions.WithLabelValues("error").Inc()
		s.logger.Error("ai answer failed", zap.String("model", s.client.Model()), zap.Error(err))
		return Answer{}, err
	}
	metrics.AIQuestions.WithLabelValues("ok").Inc()

	return Answer{
		Answer:    strings.TrimSpace(text),
		Model:     s.client.Model(),
		Timestamp: s.now().UTC(),
	}, nil
}
