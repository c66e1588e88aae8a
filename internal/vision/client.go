// Package vision is the HTTP client for the captioning service, an
// Ollama-compatible vision-language model.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hms-homelab/hms-detection/internal/logging"
)

// priorityClasses is the primary-class selection order used when an
// event has multiple detected classes.
var priorityClasses = []string{"person", "dog", "cat", "package", "car"}

// SelectPrimaryClass picks the highest-priority class present in
// classes, falling back to the first class, then to "object" if empty.
// Matches VisionClient::selectPrimaryClass.
func SelectPrimaryClass(classes []string) string {
	for _, p := range priorityClasses {
		for _, c := range classes {
			if c == p {
				return p
			}
		}
	}
	if len(classes) == 0 {
		return "object"
	}
	return classes[0]
}

// Result is the outcome of one captioning call.
type Result struct {
	Context             string
	IsValid             bool
	ResponseTimeSeconds float64
}

// Client calls an Ollama-style /api/generate endpoint with a base64 JPEG
// and a rendered prompt template.
type Client struct {
	endpoint       string
	model          string
	defaultPrompt  string
	prompts        map[string]string
	maxWords       int
	timeout        time.Duration
	connectTimeout time.Duration

	httpClient *http.Client
}

// Config holds the construction parameters for Client.
type Config struct {
	Endpoint              string
	Model                 string
	DefaultPrompt         string
	Prompts               map[string]string // camera_id -> prompt template, "default" key supported
	MaxWords              int
	TimeoutSeconds        int
	ConnectTimeoutSeconds int
}

// New builds a Client whose HTTP transport enforces ConnectTimeoutSeconds
// (default 10s) on the dial and TimeoutSeconds on the whole request.
func New(cfg Config) *Client {
	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}

	return &Client{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		model:          cfg.Model,
		defaultPrompt:  cfg.DefaultPrompt,
		prompts:        cfg.Prompts,
		maxWords:       cfg.MaxWords,
		timeout:        timeout,
		connectTimeout: connectTimeout,
		httpClient:     &http.Client{Transport: transport, Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze reads snapshotPath, builds the prompt for cameraID/detectedClass,
// and POSTs to {endpoint}/api/generate. Any failure (read, HTTP, parse)
// yields a Result with IsValid false and no Context (ResponseTimeSeconds
// is set once the request has been sent), never an error — matches
// VisionClient::analyze's graceful-degradation contract.
func (c *Client) Analyze(ctx context.Context, snapshotPath, cameraID, detectedClass string) Result {
	start := time.Now()

	imageData, err := os.ReadFile(snapshotPath)
	if err != nil || len(imageData) == 0 {
		if logging.Log != nil {
			logging.Log.Errorw("vision: cannot read snapshot", "path", snapshotPath, "error", err)
		}
		return Result{}
	}

	prompt := c.buildPrompt(cameraID, detectedClass)
	body := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(imageData)},
		Stream: false,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Result{}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("vision: request failed", "camera_id", cameraID, "error", err, "elapsed_seconds", elapsed)
		}
		return Result{ResponseTimeSeconds: elapsed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if logging.Log != nil {
			logging.Log.Errorw("vision: non-200 response", "status", resp.StatusCode)
		}
		return Result{ResponseTimeSeconds: elapsed}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if logging.Log != nil {
			logging.Log.Errorw("vision: failed to parse response", "error", err)
		}
		return Result{ResponseTimeSeconds: elapsed}
	}

	text := strings.TrimSpace(parsed.Response)
	valid := len(text) >= 15 && strings.Contains(text, " ")
	if !valid && logging.Log != nil {
		logging.Log.Warnw("vision: invalid response", "len", len(text), "text", text)
	}

	if logging.Log != nil {
		logging.Log.Infow("vision: analysis complete",
			"model", c.model, "camera_id", cameraID, "elapsed_seconds", elapsed,
			"valid", valid)
	}

	return Result{Context: text, IsValid: valid, ResponseTimeSeconds: elapsed}
}

// buildPrompt looks up a camera-specific prompt template, falling back
// to the "default" key then to DefaultPrompt, and substitutes
// {max_words}/{class} placeholders. Matches VisionClient::buildPrompt.
func (c *Client) buildPrompt(cameraID, detectedClass string) string {
	tmpl, ok := c.prompts[cameraID]
	if !ok {
		tmpl, ok = c.prompts["default"]
		if !ok {
			tmpl = c.defaultPrompt
		}
	}

	prompt := strings.ReplaceAll(tmpl, "{max_words}", strconv.Itoa(c.maxWords))
	prompt = strings.ReplaceAll(prompt, "{class}", detectedClass)
	return prompt
}
