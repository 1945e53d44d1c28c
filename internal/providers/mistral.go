package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"

	// Mistral OCR pricing: $1/1000 pages base + $3/1000 pages for annotations
	// Actual cost averages ~$0.0012 per page since not all pages have images
	MistralOCRCostPerPage = 0.0012
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	IncludeImages bool    // Whether to include base64 image data in response
	RateLimit     float64 // Requests per second (default: 6.0)
	// Upload sends each chunk through the files API and OCRs the signed URL
	// instead of inlining the PDF as a data URI.
	Upload bool
	Logger *slog.Logger
}

// MistralOCRClient implements OCRProvider using the Mistral OCR API.
type MistralOCRClient struct {
	apiKey        string
	baseURL       string
	model         string
	includeImages bool
	upload        bool
	rateLimit     float64
	limiter       *rate.Limiter
	client        *http.Client
	logger        *slog.Logger
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0 // Mistral OCR default rate limit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MistralOCRClient{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		model:         cfg.Model,
		includeImages: cfg.IncludeImages,
		upload:        cfg.Upload,
		rateLimit:     cfg.RateLimit,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// RequestsPerSecond returns the rate limit for Mistral OCR.
func (c *MistralOCRClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// ProcessDocument OCRs a PDF chunk and returns one entry per page.
func (c *MistralOCRClient) ProcessDocument(ctx context.Context, doc *Document) (*OCRResult, error) {
	start := time.Now()
	requestID := uuid.New().String()

	fail := func(err error) (*OCRResult, error) {
		return &OCRResult{
			Success:       false,
			RequestID:     requestID,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	if doc == nil || len(doc.Data) == 0 {
		return fail(fmt.Errorf("document is empty"))
	}

	documentURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(doc.Data)
	if c.upload {
		fileID, signedURL, err := c.uploadDocument(ctx, doc)
		if err != nil {
			return fail(err)
		}
		defer c.deleteFile(context.WithoutCancel(ctx), fileID)
		documentURL = signedURL
	}

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:         "document_url",
			DocumentURL:  documentURL,
			DocumentName: doc.Name,
		},
		IncludeImageBase64: c.includeImages,
	}

	var resp mistralOCRResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ocr", reqBody, &resp); err != nil {
		return fail(err)
	}

	if len(resp.Pages) == 0 {
		return fail(fmt.Errorf("no pages in OCR response"))
	}

	pages := make([]OCRPage, len(resp.Pages))
	for i, p := range resp.Pages {
		pages[i] = OCRPage{Index: p.Index, Markdown: p.Markdown}
	}

	metadata := map[string]any{
		"model_used": resp.Model,
		"document":   doc.Name,
	}
	pagesProcessed := len(resp.Pages)
	if resp.UsageInfo != nil {
		pagesProcessed = resp.UsageInfo.PagesProcessed
		metadata["pages_processed"] = resp.UsageInfo.PagesProcessed
		if resp.UsageInfo.DocSizeBytes > 0 {
			metadata["doc_size_bytes"] = resp.UsageInfo.DocSizeBytes
		}
	}

	return &OCRResult{
		Success:       true,
		Pages:         pages,
		Metadata:      metadata,
		CostUSD:       MistralOCRCostPerPage * float64(pagesProcessed),
		ExecutionTime: time.Since(start),
		RequestID:     requestID,
	}, nil
}

// uploadDocument stores the chunk through the files API and returns its id
// and a signed URL the OCR endpoint can fetch.
func (c *MistralOCRClient) uploadDocument(ctx context.Context, doc *Document) (string, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("purpose", "ocr"); err != nil {
		return "", "", fmt.Errorf("failed to build upload: %w", err)
	}
	part, err := w.CreateFormFile("file", doc.Name)
	if err != nil {
		return "", "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return "", "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("failed to build upload: %w", err)
	}

	respBody, err := c.send(ctx, http.MethodPost, "/files", w.FormDataContentType(), &body)
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", doc.Name, err)
	}
	var file mistralFile
	if err := json.Unmarshal(respBody, &file); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	if file.ID == "" {
		return "", "", fmt.Errorf("upload %s: response has no file id", doc.Name)
	}

	// The signed URL is occasionally not ready right after the upload returns.
	var signed mistralSignedURL
	err = retry.Do(
		func() error {
			return c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(file.ID)+"/url?expiry=1", nil, &signed)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrUnavailable) }),
	)
	if err != nil {
		c.deleteFile(context.WithoutCancel(ctx), file.ID)
		return "", "", fmt.Errorf("signed url for %s: %w", doc.Name, err)
	}

	return file.ID, signed.URL, nil
}

// deleteFile removes an uploaded chunk. Failures are only logged.
func (c *MistralOCRClient) deleteFile(ctx context.Context, fileID string) {
	if _, err := c.send(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), "", nil); err != nil {
		c.logger.Warn("failed to delete uploaded chunk", "file_id", fileID, "error", err)
	}
}

// doJSON sends an optional JSON body and decodes the JSON response into out.
func (c *MistralOCRClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
		contentType = "application/json"
	}

	respBody, err := c.send(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// send performs one paced request against the Mistral API.
// Connection and authentication failures wrap ErrUnavailable. Timeouts and
// failures after the request reached the server do not.
func (c *MistralOCRClient) send(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if unreachable(err) {
			return nil, fmt.Errorf("%w: request failed: %w", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		err := fmt.Errorf("Mistral OCR error (status %d): %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	return respBody, nil
}

// unreachable reports whether a transport error happened before the request
// reached the server: a refused or failed dial, or a failed name lookup.
func unreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64"`
}

type mistralDocument struct {
	Type         string `json:"type"` // "document_url"
	DocumentURL  string `json:"document_url"`
	DocumentName string `json:"document_name,omitempty"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

type mistralFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

type mistralSignedURL struct {
	URL string `json:"url"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interface
var _ OCRProvider = (*MistralOCRClient)(nil)
