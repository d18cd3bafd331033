package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Config struct {
	BaseURL        string
	AnalysisModel  string
	ImageModel     string
	VideoModel     string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	PollLimit      int
}

func NewConfig() *Config {
	return &Config{
		BaseURL:        defaultBaseURL,
		AnalysisModel:  "gemini-2.5-flash",
		ImageModel:     "gemini-2.0-flash-preview-image-generation",
		VideoModel:     "veo-3.0-generate-001",
		RequestTimeout: 120 * time.Second,
		PollInterval:   8 * time.Second,
		PollLimit:      75,
	}
}

// Client speaks the Generative Language REST API for one credential. It keeps
// no per-call state; one instance serves a whole project session.
type Client struct {
	cfg        Config
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *Config, apiKey string) *Client {
	merged := *NewConfig()
	if cfg != nil {
		if cfg.BaseURL != "" {
			merged.BaseURL = cfg.BaseURL
		}
		if cfg.AnalysisModel != "" {
			merged.AnalysisModel = cfg.AnalysisModel
		}
		if cfg.ImageModel != "" {
			merged.ImageModel = cfg.ImageModel
		}
		if cfg.VideoModel != "" {
			merged.VideoModel = cfg.VideoModel
		}
		if cfg.RequestTimeout > 0 {
			merged.RequestTimeout = cfg.RequestTimeout
		}
		if cfg.PollInterval > 0 {
			merged.PollInterval = cfg.PollInterval
		}
		if cfg.PollLimit > 0 {
			merged.PollLimit = cfg.PollLimit
		}
	}

	return &Client{
		cfg:    merged,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: merged.RequestTimeout,
		},
	}
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     *geminiSchema `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *googleError      `json:"error"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Probe is the zero-argument credential check: a cheap list-models call that
// succeeds iff the key is currently usable.
func (c *Client) Probe(ctx context.Context) error {
	probeURL := fmt.Sprintf("%s/models?pageSize=1&key=%s", c.cfg.BaseURL, url.QueryEscape(c.apiKey))
	return c.doJSON(ctx, http.MethodGet, probeURL, nil, nil)
}

func (c *Client) modelURL(model, verb string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s", c.cfg.BaseURL, model, verb, url.QueryEscape(c.apiKey))
}

func (c *Client) operationURL(name string) string {
	return fmt.Sprintf("%s/%s?key=%s", c.cfg.BaseURL, name, url.QueryEscape(c.apiKey))
}

func (c *Client) doJSON(ctx context.Context, method, reqURL string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// The error envelope is decoded before the payload: auth failures arrive
	// as non-200 bodies whose shape matches no operation response.
	var envelope struct {
		Error *googleError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		return classifyBackendError(resp.StatusCode, envelope.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return classifyBackendError(resp.StatusCode, snippet(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// AppendKey attaches the access credential to a backend download reference.
// The polling result arrives without one; playback needs it.
func AppendKey(uri, key string) string {
	if uri == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + url.QueryEscape(key)
}
