package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

const (
	browserClientTimeout    = 30 * time.Second
	browserMaxResponseBytes = 256 * 1024
)

// BrowserClient 调用 cmd/browser-scraper 旁路服务，用无头浏览器渲染后
// 提取元数据，用于纯前端渲染、普通抓取拿不到 meta 标签的页面
type BrowserClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewBrowserClient(baseURL string) *BrowserClient {
	return &BrowserClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: browserClientTimeout},
	}
}

type browserRequest struct {
	URL string `json:"url"`
}

type browserResponse struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Metadata *browserMetadata `json:"metadata,omitempty"`
}

type browserMetadata struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	OGTitle            string `json:"ogTitle"`
	OGDescription      string `json:"ogDescription"`
	OGURL              string `json:"ogUrl"`
	OGImage            string `json:"ogImage"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImageSrc    string `json:"twitterImageSrc"`
}

func (c *BrowserClient) Scrape(ctx context.Context, link string) (*pipeline.Metadata, error) {
	payload, err := json.Marshal(browserRequest{URL: link})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/metadata", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, browserMaxResponseBytes))
	if err != nil {
		return nil, err
	}

	var out browserResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("metadata: browser scraper: %w", err)
	}
	if !out.OK || out.Metadata == nil {
		return nil, fmt.Errorf("metadata: browser scraper: %s", out.Error)
	}

	m := out.Metadata
	return &pipeline.Metadata{
		Title:              m.Title,
		Description:        m.Description,
		OGTitle:            m.OGTitle,
		OGDescription:      m.OGDescription,
		OGURL:              m.OGURL,
		OGImage:            m.OGImage,
		TwitterDescription: m.TwitterDescription,
		TwitterImageSrc:    m.TwitterImageSrc,
	}, nil
}
