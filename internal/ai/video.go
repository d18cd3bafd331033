package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// videoProgressMessages is the fixed rotation shown while a render is
// pending. Message polls%len is emitted after every not-done poll.
var videoProgressMessages = []string{
	"Warming up the render farm...",
	"Blocking out the scene...",
	"Lighting the set...",
	"Rolling cameras...",
	"Compositing frames...",
	"Color grading the cut...",
}

type videoRenderRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
	SampleCount int    `json:"sampleCount"`
}

type videoOperation struct {
	Name     string                  `json:"name"`
	Done     bool                    `json:"done"`
	Error    *googleError            `json:"error,omitempty"`
	Response *videoOperationResponse `json:"response,omitempty"`
}

type videoOperationResponse struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedSample `json:"generatedSamples"`
}

type generatedSample struct {
	Video videoRef `json:"video"`
}

type videoRef struct {
	URI string `json:"uri"`
}

func (op *videoOperation) videoURI() string {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return ""
	}
	for _, s := range op.Response.GenerateVideoResponse.GeneratedSamples {
		if s.Video.URI != "" {
			return s.Video.URI
		}
	}
	return ""
}

// GenerateVideo starts a long-running render for the prompt and polls it
// to completion. onProgress, if non-nil, receives one rotating status
// message after every poll that finds the job still pending. The returned
// URL already carries the API key so it can be fetched directly.
func (c *Client) GenerateVideo(ctx context.Context, prompt string, onProgress func(string)) (videoURL string, err error) {
	start := time.Now()
	defer func() { observeRequest("video", start, err) }()

	name, err := c.startVideoJob(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrCredentialExpired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrVideoFailed, err)
	}

	polls := 0
	for {
		var op videoOperation
		if err := c.doJSON(ctx, http.MethodGet, c.operationURL(name), nil, &op); err != nil {
			if errors.Is(err, ErrCredentialExpired) {
				return "", err
			}
			return "", fmt.Errorf("%w: %v", ErrVideoFailed, err)
		}

		if op.Done {
			if op.Error != nil {
				opErr := classifyBackendError(op.Error.Code, op.Error.Message)
				if errors.Is(opErr, ErrCredentialExpired) {
					return "", opErr
				}
				return "", fmt.Errorf("%w: %v", ErrVideoFailed, opErr)
			}
			uri := op.videoURI()
			if uri == "" {
				return "", fmt.Errorf("%w: operation finished without a video", ErrVideoFailed)
			}
			return AppendKey(uri, c.apiKey), nil
		}

		if polls >= c.cfg.PollLimit {
			return "", fmt.Errorf("%w: render still pending after %d polls", ErrVideoFailed, polls)
		}
		if onProgress != nil {
			onProgress(videoProgressMessages[polls%len(videoProgressMessages)])
		}
		polls++

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Client) startVideoJob(ctx context.Context, prompt string) (string, error) {
	reqBody := videoRenderRequest{
		Instances: []videoInstance{{Prompt: prompt}},
		Parameters: videoParameters{
			AspectRatio: "16:9",
			Resolution:  "1080p",
			SampleCount: 1,
		},
	}

	var op videoOperation
	if err := c.doJSON(ctx, http.MethodPost, c.modelURL(c.cfg.VideoModel, "predictLongRunning"), reqBody, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("no operation name in render response")
	}
	return op.Name, nil
}
