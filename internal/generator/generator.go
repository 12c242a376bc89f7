// Package generator produces user-facing answers and structured risk
// assessments from retrieved context using a chat completion model. Provider
// failures surface as errors for the pipeline to degrade gracefully;
// malformed model output is recovered here and never escapes.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

// ErrMalformedResponse indicates the model's output could not be parsed into
// the expected structure. It is recovered internally by the heuristic
// fallback and logged, never returned to callers.
var ErrMalformedResponse = errors.New("generator returned malformed response")

const (
	// DefaultMaxTokens is the maximum context length before truncation (in tokens).
	DefaultMaxTokens = 16000

	// DefaultTimeout bounds a single generation call. Risk assessments get
	// the same budget; they are the slowest calls in the system.
	DefaultTimeout = 90 * time.Second
)

// RiskAssessment is the structured result of a risk analysis.
type RiskAssessment struct {
	Analysis                string   `json:"analysis"`
	RiskLevel               string   `json:"risk_level"`
	Risks                   []string `json:"risks"`
	LegalImplications       []string `json:"legal_implications"`
	TechnicalConsiderations []string `json:"technical_considerations"`
	Recommendations         []string `json:"recommendations"`
}

// Generator wraps the OpenAI chat completion client.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Generator. It requires OPENAI_API_KEY in the environment.
func New(model string, timeout time.Duration, logger *slog.Logger) (*Generator, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := openai.NewClient()

	return &Generator{
		client:    &client,
		model:     model,
		maxTokens: DefaultMaxTokens,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

const answerPrompt = `You are a DPDP Act 2023 assistant. Answer briefly and clearly.

RULES:
1. Use ONLY the context provided
2. Keep answers SHORT (1-2 sentences max)
3. If no info in context, say "Not found in DPDP Act"
4. Be direct and concise

CONTEXT: %s

Q: %s
A:`

// Answer generates a concise answer to query grounded in the retrieved
// context.
func (g *Generator) Answer(ctx context.Context, query, retrievedContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(answerPrompt, g.truncate(retrievedContext), query)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       g.model,
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const riskPrompt = `You are a data protection and privacy risk assessment expert. You MUST use the provided knowledge base context to analyze risks.

IMPORTANT: Use ONLY the information from the knowledge base context below. Do not make up information.

Query: %s

Knowledge Base Context:
%s

Based on the knowledge base context above, provide a comprehensive risk assessment in this EXACT JSON format (no additional text before or after):

{
    "analysis": "Detailed analysis based on the knowledge base context",
    "risk_level": "HIGH/MEDIUM/LOW",
    "risks": ["Specific risk 1 from context", "Specific risk 2 from context"],
    "legal_implications": ["Legal implication 1 from context", "Legal implication 2 from context"],
    "technical_considerations": ["Technical consideration 1 from context", "Technical consideration 2 from context"],
    "recommendations": ["Recommendation 1 based on context", "Recommendation 2 based on context"]
}

Focus on DPDP Act 2023, GDPR, and data protection compliance. Use specific information from the knowledge base.`

// AssessRisk generates a structured risk assessment for query against the
// retrieved context. A strict JSON parse is attempted first; if the model
// output is malformed, a best-effort heuristic assessment is returned
// instead of an error.
func (g *Generator) AssessRisk(ctx context.Context, query, retrievedContext string) (*RiskAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(riskPrompt, query, g.truncate(retrievedContext))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)

	assessment, err := parseAssessment(raw)
	if err != nil {
		g.logger.Warn("falling back to heuristic risk extraction",
			"error", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		return heuristicAssessment(raw), nil
	}
	return assessment, nil
}

// parseAssessment strictly parses the model output as a JSON risk
// assessment, filling defaults for any missing fields.
func parseAssessment(raw string) (*RiskAssessment, error) {
	var assessment RiskAssessment
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		return nil, err
	}

	if assessment.Analysis == "" {
		assessment.Analysis = "Risk assessment completed based on knowledge base"
	}
	if assessment.RiskLevel == "" {
		assessment.RiskLevel = "MEDIUM"
	}
	return &assessment, nil
}

// heuristicAssessment builds a best-effort assessment from unparseable
// output: risk level scanned from the raw text, analysis truncated from it,
// and fixed generic findings.
func heuristicAssessment(raw string) *RiskAssessment {
	analysis := raw
	if len(analysis) > 300 {
		analysis = "Based on the knowledge base analysis: " + analysis[:300] + "..."
	}

	level := "MEDIUM"
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "high") {
		level = "HIGH"
	} else if strings.Contains(lower, "low") {
		level = "LOW"
	}

	return &RiskAssessment{
		Analysis:                analysis,
		RiskLevel:               level,
		Risks:                   []string{"Data privacy violations", "Regulatory non-compliance", "Security vulnerabilities"},
		LegalImplications:       []string{"DPDP Act violations", "Potential fines and penalties"},
		TechnicalConsiderations: []string{"Data security gaps", "Access control issues"},
		Recommendations:         []string{"Implement proper consent mechanisms", "Review data handling practices", "Conduct compliance audit"},
	}
}

// truncate limits content to the token budget using a rough estimate of
// 4 characters per token.
func (g *Generator) truncate(content string) string {
	maxChars := g.maxTokens * 4
	if len(content) <= maxChars {
		return content
	}

	g.logger.Warn("truncating generation context",
		"from_chars", len(content), "to_chars", maxChars)
	return content[:maxChars]
}
