package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const storyboardQualifiers = ", cinematic film still, 16:9 aspect ratio, high detail, dramatic lighting"

// GenerateStoryboard renders a single still frame for the scene's visual
// prompt and returns it as an inline data URI.
func (c *Client) GenerateStoryboard(ctx context.Context, visualPrompt string) (imageURI string, err error) {
	start := time.Now()
	defer func() { observeRequest("storyboard", start, err) }()

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: visualPrompt + storyboardQualifiers}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	var resp geminiResponse
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.cfg.ImageModel, "generateContent"), reqBody, &resp); err != nil {
		if errors.Is(err, ErrCredentialExpired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrStoryboardFailed, err)
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return fmt.Sprintf("data:%s;base64,%s", p.InlineData.MimeType, p.InlineData.Data), nil
			}
		}
	}

	return "", fmt.Errorf("%w: no image in model response", ErrStoryboardFailed)
}
