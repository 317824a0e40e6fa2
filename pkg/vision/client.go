package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

const systemPrompt = "You are an image analyst expert. Your work is to read images and provide the most vivid description of them, " +
	"making use of any caption to make sense of the image. The description is sent to an AI model that handles the " +
	"conversation with the user, so describe clearly what is in the picture. You act as the eyes of that model."

// maxDecodePixels bounds the bitmap imaging.Decode may allocate.
const maxDecodePixels = 40_000_000

type Client struct {
	httpClient   *resty.Client
	endpoint     string
	apiKey       string
	temperature  float64
	topP         float64
	maxTokens    int
	maxDimension int
	maxBytes     int64
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type completionRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewClient(cfg environments.VisionConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout)

	return &Client{
		httpClient:   client,
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		temperature:  cfg.Temperature,
		topP:         cfg.TopP,
		maxTokens:    cfg.MaxTokens,
		maxDimension: cfg.MaxDimension,
		maxBytes:     cfg.MaxImageBytes,
	}
}

// Describe fetches the image at url and asks the completion endpoint for a description.
func (c *Client) Describe(ctx context.Context, url, caption string) (string, error) {
	raw, contentType, err := c.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	data, mime := c.prepare(raw, contentType)
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	user := []contentPart{{Type: "image_url", ImageURL: &imageURL{URL: dataURL}}}
	if caption != "" {
		user = append(user, contentPart{Type: "text", Text: caption})
	}

	req := completionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: []contentPart{{Type: "text", Text: systemPrompt}}},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	}

	var out completionResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("api-key", c.apiKey).
		SetBody(req).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call vision endpoint: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("vision response carried no description")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode())
	}
	if c.maxBytes > 0 && resp.RawResponse.ContentLength > c.maxBytes {
		return nil, "", fmt.Errorf("image is %d bytes, limit is %d", resp.RawResponse.ContentLength, c.maxBytes)
	}

	reader := io.Reader(body)
	if c.maxBytes > 0 {
		// One extra byte tells an over-limit body apart from one exactly at the limit.
		reader = io.LimitReader(body, c.maxBytes+1)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if c.maxBytes > 0 && int64(len(raw)) > c.maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", c.maxBytes)
	}
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("downloaded image is empty")
	}

	return raw, resp.Header().Get("Content-Type"), nil
}

// prepare shrinks large images and re-encodes them as JPEG. Bytes that do not
// decode are passed through untouched so the endpoint can still try.
func (c *Client) prepare(raw []byte, contentType string) ([]byte, string) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	// Check the header first so a small file cannot claim a huge bitmap.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil &&
		int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		logger.Warnf("Image is %dx%d, sending original bytes without decoding", cfg.Width, cfg.Height)
		return raw, contentType
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		logger.Warnf("Could not decode image, sending original bytes: %v", err)
		return raw, contentType
	}

	b := img.Bounds()
	if c.maxDimension > 0 && (b.Dx() > c.maxDimension || b.Dy() > c.maxDimension) {
		img = imaging.Fit(img, c.maxDimension, c.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		logger.Warnf("Could not re-encode image, sending original bytes: %v", err)
		return raw, contentType
	}

	return buf.Bytes(), "image/jpeg"
}
