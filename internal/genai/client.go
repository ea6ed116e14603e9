package genai

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

// geminiClient implements the EmbeddingClient interface using the Google Gemini API.
type geminiClient struct {
	client *genai.Client
	cfg    Config
}

// EmbeddingClient defines the interface for turning texts into vector
// representations. The semantic distance metric depends only on this.
type EmbeddingClient interface {
	// EmbedTexts embeds a batch of texts, returning one vector per input
	// in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// IsAPIKeyValid checks if the configured API key is functional.
	IsAPIKeyValid(ctx context.Context) error

	// Close cleans up any resources used by the client.
	Close() error
}

// Config holds configuration for the GenAI client.
type Config struct {
	APIKey string
	Model  string
	Retry  RetryOptions
}

// NewClient creates a new Gemini embedding client.
func NewClient(ctx context.Context, cfg Config) (EmbeddingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini client: API key is missing")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
		log.Printf("INFO: Embedding model not specified, defaulting to %s", cfg.Model)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryOptions
	}

	return &geminiClient{
		client: client,
		cfg:    cfg,
	}, nil
}

// Close cleans up the underlying Gemini client.
func (c *geminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks if the Gemini API key is valid by listing models.
func (c *geminiClient) IsAPIKeyValid(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("gemini client not initialized (likely missing API key)")
	}

	modelIterator := c.client.ListModels(ctx)
	_, err := modelIterator.Next() // Attempt to list one model
	if err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == 16 /* UNAUTHENTICATED */ || st.Code() == 7 /* PERMISSION_DENIED */ {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

// EmbedTexts embeds a batch of texts with the configured model. Transient
// API failures are retried with exponential backoff.
func (c *geminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if c.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	em := c.client.EmbeddingModel(c.cfg.Model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	resp, err := withRetry(ctx, c.cfg.Retry, func(ctx context.Context) (*genai.BatchEmbedContentsResponse, error) {
		return em.BatchEmbedContents(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini embedding call failed for %d text(s): %w", len(texts), err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("Gemini returned %d embedding(s) for %d text(s)", got, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("Gemini returned an empty embedding for text #%d", i+1)
		}
		vectors[i] = embedding.Values
	}
	return vectors, nil
}
