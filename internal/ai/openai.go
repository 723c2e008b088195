package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel      = "text-embedding-3-small"
	DefaultOpenAIDimensions = 1536
)

// OpenAIProvider calls the hosted embeddings API. It needs an API key.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
	// requested is sent to the API when it differs from the model's native size.
	requested  int
}

func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	native := openAIDimensions(cfg.Model)
	requested := 0
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = native
	} else if cfg.Dimensions != native {
		requested = cfg.Dimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		requested:  requested,
	}, nil
}

func (p *OpenAIProvider) Name() string    { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string   { return p.model }
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(p.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     p.requested,
	})
	if err != nil {
		return nil, openAIBackendError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &BackendError{Backend: ProviderOpenAI, StatusCode: 200, Message: "empty embedding in response"}
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return openAIBackendError(err)
	}
	return nil
}

func openAIBackendError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{Backend: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &BackendError{Backend: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Err: reqErr.Err}
	}
	return &BackendError{Backend: ProviderOpenAI, Err: fmt.Errorf("create embeddings: %w", err)}
}

func openAIDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return DefaultOpenAIDimensions
	}
}
