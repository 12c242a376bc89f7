package storage

// CollectionName is the single Qdrant collection holding all embedding
// records across namespaces.
const CollectionName = "embeddings"

// ScoredChunk is one retrieval result: stored chunk text with its cosine
// similarity to the query vector (1.0 means identical direction).
type ScoredChunk struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}
