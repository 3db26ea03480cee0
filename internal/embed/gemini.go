package embed

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/m-mizutani/gollem/llm/gemini"
)

const defaultGeminiLocation = "us-central1"

// NewGeminiSourceFromEnv builds the embedding backend from GEMINI_PROJECT_ID
// and GEMINI_LOCATION.
func NewGeminiSourceFromEnv(ctx context.Context) (VectorSource, error) {
	projectID := strings.TrimSpace(os.Getenv("GEMINI_PROJECT_ID"))
	if projectID == "" {
		return nil, errors.New("GEMINI_PROJECT_ID not configured")
	}
	location := strings.TrimSpace(os.Getenv("GEMINI_LOCATION"))
	if location == "" {
		location = defaultGeminiLocation
	}
	return NewGeminiSource(ctx, projectID, location)
}

// NewGeminiSource creates a Gemini-backed embedding client.
func NewGeminiSource(ctx context.Context, projectID, location string) (VectorSource, error) {
	client, err := gemini.New(ctx, projectID, location)
	if err != nil {
		return nil, err
	}
	return client, nil
}
