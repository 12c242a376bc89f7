// Package pipeline orchestrates the retrieval flow: ingestion (normalize,
// chunk, embed, store) and answering (cache, embed, search, generate). All
// provider and store failures are absorbed here into fixed, well-formed
// degraded payloads; a raw network error never reaches the caller on the
// chat paths.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/complykit/ragserver/internal/cache"
	"github.com/complykit/ragserver/internal/chunker"
	"github.com/complykit/ragserver/internal/extract"
	"github.com/complykit/ragserver/internal/generator"
	"github.com/complykit/ragserver/internal/storage"
)

const (
	// DefaultNamespace is the single knowledge-base partition this
	// deployment operates on.
	DefaultNamespace = "knowledge_base"

	// DefaultTopK is the number of chunks retrieved for chat answers.
	DefaultTopK = 3

	// DefaultRiskTopK is the wider retrieval window for risk assessments.
	DefaultRiskTopK = 10
)

// Fixed user-facing responses. The degraded ones are never cached.
const (
	noKnowledgeResponse = "I don't have any knowledge to answer your question. " +
		"Please upload documents to the knowledge base first."
	degradedResponse = "I'm sorry, I'm having trouble connecting to my knowledge base " +
		"right now. Please try again in a moment."
	generationFailedResponse = "Sorry, I encountered an error while processing your request."
	riskDegradedAnalysis     = "Sorry, I'm having trouble generating a risk assessment right now. " +
		"Please try again in a moment."
	riskNoKnowledgeAnalysis = "I don't have sufficient knowledge to perform risk assessment. " +
		"Please upload documents to the knowledge base first."
)

// Embedder converts text to fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorStore persists embedding records and answers similarity queries.
type VectorStore interface {
	InsertBatch(ctx context.Context, namespace string, contents []string, vectors [][]float32) error
	Search(ctx context.Context, namespace string, vector []float32, k int) ([]storage.ScoredChunk, error)
	Count(ctx context.Context, namespace string) (uint64, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}

// Generator produces answers and risk assessments from retrieved context.
type Generator interface {
	Answer(ctx context.Context, query, retrievedContext string) (string, error)
	AssessRisk(ctx context.Context, query, retrievedContext string) (*generator.RiskAssessment, error)
}

// AnswerResult is the payload for a chat answer.
type AnswerResult struct {
	Response string                `json:"response"`
	Sources  []storage.ScoredChunk `json:"sources"`
}

// RiskResult is the payload for a risk assessment.
type RiskResult struct {
	generator.RiskAssessment
	Sources []storage.ScoredChunk `json:"sources"`
}

// IngestResult reports what an ingestion run stored.
type IngestResult struct {
	ChunksStored int           `json:"chunks_stored"`
	Duration     time.Duration `json:"-"`
}

// Stats describes the state of the knowledge base.
type Stats struct {
	TotalChunks uint64 `json:"total_chunks"`
	Status      string `json:"status"` // "ready" or "empty"
}

// Pipeline wires the chunker, embedder, vector store, generator and response
// cache into the ingestion and query paths.
type Pipeline struct {
	chunker   *chunker.Chunker
	embedder  Embedder
	store     VectorStore
	generator Generator
	cache     *cache.QueryCache[*AnswerResult]
	namespace string
	logger    *slog.Logger
}

// New creates a Pipeline. A nil logger falls back to slog.Default; an empty
// namespace falls back to DefaultNamespace.
func New(
	ch *chunker.Chunker,
	embedder Embedder,
	store VectorStore,
	gen Generator,
	responseCache *cache.QueryCache[*AnswerResult],
	namespace string,
	logger *slog.Logger,
) *Pipeline {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		generator: gen,
		cache:     responseCache,
		namespace: namespace,
		logger:    logger,
	}
}

// Ingest normalizes text, chunks it, embeds every chunk and stores the
// batch atomically. The response cache is invalidated on success because
// cached answers may reference the pre-ingest knowledge base.
func (p *Pipeline) Ingest(ctx context.Context, text string) (*IngestResult, error) {
	start := time.Now()

	normalized := extract.Normalize(text)
	chunks := p.chunker.Chunk(normalized)
	if len(chunks) == 0 {
		return &IngestResult{ChunksStored: 0, Duration: time.Since(start)}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	if err := p.store.InsertBatch(ctx, p.namespace, texts, vectors); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	p.cache.InvalidateAll()

	p.logger.Info("ingested document",
		"namespace", p.namespace, "chunks", len(chunks), "duration", time.Since(start))

	return &IngestResult{ChunksStored: len(chunks), Duration: time.Since(start)}, nil
}

// Answer resolves a query: cache lookup, query embedding, similarity search,
// context assembly and generation. It always returns a well-formed result;
// failures downstream become fixed degraded responses, which are not cached.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int) *AnswerResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if cached, ok := p.cache.Get(query); ok {
		p.logger.Info("cache hit", "query", query)
		return cached
	}

	queryVector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		p.logger.Error("query embedding failed", "query", query, "error", err)
		return &AnswerResult{Response: degradedResponse, Sources: []storage.ScoredChunk{}}
	}

	count, err := p.store.Count(ctx, p.namespace)
	if err != nil {
		p.logger.Error("knowledge base probe failed", "error", err)
		return &AnswerResult{Response: degradedResponse, Sources: []storage.ScoredChunk{}}
	}
	if count == 0 {
		p.logger.Warn("no embeddings in knowledge base", "namespace", p.namespace)
		result := &AnswerResult{Response: noKnowledgeResponse, Sources: []storage.ScoredChunk{}}
		p.cache.Put(query, result)
		return result
	}

	chunks, err := p.store.Search(ctx, p.namespace, queryVector, topK)
	if err != nil {
		p.logger.Error("retrieval failed", "query", query, "error", err)
		return &AnswerResult{Response: degradedResponse, Sources: []storage.ScoredChunk{}}
	}

	response, err := p.generator.Answer(ctx, query, joinContents(chunks))
	if err != nil {
		p.logger.Error("generation failed", "query", query, "error", err)
		return &AnswerResult{Response: generationFailedResponse, Sources: chunks}
	}

	result := &AnswerResult{Response: response, Sources: chunks}
	p.cache.Put(query, result)

	p.logger.Info("answered query", "query", query, "sources", len(chunks))
	return result
}

// AssessRisk runs the wider retrieval path and structured generation.
// extraContext is optional caller-supplied material appended after the
// retrieved chunks. Risk assessments are not cached.
func (p *Pipeline) AssessRisk(ctx context.Context, query, extraContext string, topK int) *RiskResult {
	if topK <= 0 {
		topK = DefaultRiskTopK
	}

	queryVector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		p.logger.Error("query embedding failed", "query", query, "error", err)
		return degradedRiskResult()
	}

	var chunks []storage.ScoredChunk
	count, err := p.store.Count(ctx, p.namespace)
	if err != nil {
		p.logger.Error("knowledge base probe failed", "error", err)
		return degradedRiskResult()
	}
	if count > 0 {
		chunks, err = p.store.Search(ctx, p.namespace, queryVector, topK)
		if err != nil {
			p.logger.Error("retrieval failed", "query", query, "error", err)
			return degradedRiskResult()
		}
	}

	if len(chunks) == 0 && extraContext == "" {
		return &RiskResult{
			RiskAssessment: generator.RiskAssessment{
				Analysis:                riskNoKnowledgeAnalysis,
				RiskLevel:               "UNKNOWN",
				Risks:                   []string{},
				LegalImplications:       []string{},
				TechnicalConsiderations: []string{},
				Recommendations:         []string{},
			},
			Sources: []storage.ScoredChunk{},
		}
	}

	retrievedContext := joinContents(chunks)
	if extraContext != "" {
		retrievedContext += "\n\nAdditional Information:\n" + extraContext
	}

	assessment, err := p.generator.AssessRisk(ctx, query, retrievedContext)
	if err != nil {
		p.logger.Error("risk generation failed", "query", query, "error", err)
		return degradedRiskResult()
	}

	if chunks == nil {
		chunks = []storage.ScoredChunk{}
	}
	return &RiskResult{RiskAssessment: *assessment, Sources: chunks}
}

// Reset deletes every record in the namespace and drops all cached answers.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.store.DeleteNamespace(ctx, p.namespace); err != nil {
		return fmt.Errorf("reset namespace: %w", err)
	}
	p.cache.InvalidateAll()

	p.logger.Info("knowledge base reset", "namespace", p.namespace)
	return nil
}

// Stats reports the chunk count and readiness of the knowledge base.
func (p *Pipeline) Stats(ctx context.Context) (*Stats, error) {
	count, err := p.store.Count(ctx, p.namespace)
	if err != nil {
		return nil, fmt.Errorf("count namespace: %w", err)
	}

	status := "ready"
	if count == 0 {
		status = "empty"
	}
	return &Stats{TotalChunks: count, Status: status}, nil
}

// joinContents concatenates retrieved chunk contents in ranked order,
// separated by a blank line.
func joinContents(chunks []storage.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

func degradedRiskResult() *RiskResult {
	return &RiskResult{
		RiskAssessment: generator.RiskAssessment{
			Analysis:                riskDegradedAnalysis,
			RiskLevel:               "UNKNOWN",
			Risks:                   []string{},
			LegalImplications:       []string{},
			TechnicalConsiderations: []string{},
			Recommendations:         []string{},
		},
		Sources: []storage.ScoredChunk{},
	}
}
