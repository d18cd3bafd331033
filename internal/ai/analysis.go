package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cinescript/internal/models"
)

// AnalyzeScreenplay sends the PDF and the creative instruction as one
// request and decodes the structured scene payload. The response schema
// variant follows cfg.IncludeSubtitles.
func (c *Client) AnalyzeScreenplay(ctx context.Context, document []byte, cfg models.GenerationConfig) (scene *models.MovieScene, err error) {
	start := time.Now()
	defer func() { observeRequest("analyze", start, err) }()

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(document),
				}},
				{Text: buildAnalysisInstruction(cfg)},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   analysisSchema(cfg.IncludeSubtitles),
		},
	}

	var resp geminiResponse
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.cfg.AnalysisModel, "generateContent"), reqBody, &resp); err != nil {
		if errors.Is(err, ErrCredentialExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	text := firstCandidateText(&resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrAnalysisFailed)
	}

	var out models.MovieScene
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: unparseable scene payload: %v", ErrAnalysisFailed, err)
	}
	if err := validateScene(&out, cfg.IncludeSubtitles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	// Cues are part of the scene iff they were requested.
	if !cfg.IncludeSubtitles {
		out.Subtitles = nil
	}

	return &out, nil
}

func buildAnalysisInstruction(cfg models.GenerationConfig) string {
	var b strings.Builder
	b.WriteString("Read the attached screenplay and distill it into one filmable scene for a short AI-generated film.\n")
	fmt.Fprintf(&b, "Genre: %s. Mood: %s. Camera movement: %s.\n", cfg.Genre, cfg.Mood, cfg.Camera)
	fmt.Fprintf(&b, "Center the scene on these character archetypes: %s.\n", strings.Join(cfg.Archetypes, ", "))
	b.WriteString("Return the scene title, a one-paragraph description, the main characters, ")
	b.WriteString("the genre and mood you settled on, and a richly detailed visualPrompt for a ")
	b.WriteString("text-to-video model. The visualPrompt must carry the genre, the mood, and the ")
	b.WriteString("camera movement verbatim.")
	if cfg.IncludeSubtitles {
		b.WriteString(" Also return subtitles: the scene's key spoken lines as cues with startTime ")
		b.WriteString("and endTime in seconds, where startTime is at least 0 and less than endTime.")
	}
	return b.String()
}

func firstCandidateText(resp *geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func validateScene(scene *models.MovieScene, wantSubtitles bool) error {
	switch {
	case scene.Title == "":
		return fmt.Errorf("scene payload missing title")
	case scene.Description == "":
		return fmt.Errorf("scene payload missing description")
	case scene.VisualPrompt == "":
		return fmt.Errorf("scene payload missing visualPrompt")
	case scene.Genre == "":
		return fmt.Errorf("scene payload missing genre")
	case scene.Mood == "":
		return fmt.Errorf("scene payload missing mood")
	case scene.Characters == nil:
		return fmt.Errorf("scene payload missing characters")
	}

	if wantSubtitles && len(scene.Subtitles) == 0 {
		return fmt.Errorf("scene payload missing required subtitles")
	}

	return nil
}
