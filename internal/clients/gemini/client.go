package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

type Model string

const (
	//ModelTextEmbedding004 is the current general-purpose text embedding model
	ModelTextEmbedding004 Model = "text-embedding-004"
	//ModelEmbedding001 is the legacy embedding model kept for stored vectors
	ModelEmbedding001 Model = "embedding-001"
)

// Client embeds text through the Gemini API. Separate model handles carry the
// document and query task types, so both intents can be used concurrently.
type Client struct {
	client            *genai.Client
	documentModel     *genai.EmbeddingModel
	queryModel        *genai.EmbeddingModel
	minuteRateLimiter *rate.Limiter
	dayRateLimiter    *rate.Limiter
}

func NewClient(ctx context.Context, apiKey string, model Model) (*Client, error) {

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	documentModel := client.EmbeddingModel(string(model))
	documentModel.TaskType = genai.TaskTypeRetrievalDocument

	queryModel := client.EmbeddingModel(string(model))
	queryModel.TaskType = genai.TaskTypeRetrievalQuery

	service := Client{
		client:        client,
		documentModel: documentModel,
		queryModel:    queryModel,
	}

	return &service, nil
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) SetDayRateLimit(maxRequestsPerDay float32) {
	c.dayRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerDay/86400), int(maxRequestsPerDay))
}

// EmbedDocument converts stored-entity text to a vector with document intent.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.documentModel, text)
}

// EmbedQuery converts search text to a vector with query intent.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.queryModel, text)
}

// EmbedBatch embeds documents in one request, preserving input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {

	if err := c.waitForRateLimiters(ctx); err != nil {
		return nil, err
	}

	batch := c.documentModel.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	response, err := c.documentModel.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings))
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i, embedding := range response.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

func (c *Client) embed(ctx context.Context, model *genai.EmbeddingModel, text string) ([]float32, error) {

	var vector []float32
	var err error

	_, _, _ = lo.AttemptWhileWithDelay(3, 2*time.Second, func(i int, _ time.Duration) (error, bool) {
		if i > 0 {
			log.Warn("gemini api returned 500 error, retrying...")
		}
		vector, err = c.waitAndEmbed(ctx, model, text)
		return err, isInternalError(err)
	})

	return vector, err
}

func (c *Client) waitAndEmbed(ctx context.Context, model *genai.EmbeddingModel, text string) ([]float32, error) {

	if err := c.waitForRateLimiters(ctx); err != nil {
		return nil, err
	}

	response, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}

	if response.Embedding == nil || len(response.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}

	return response.Embedding.Values, nil
}

func (c *Client) waitForRateLimiters(ctx context.Context) error {
	limiters := []*rate.Limiter{c.minuteRateLimiter, c.dayRateLimiter}
	for _, limiter := range limiters {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Error 500")
}
