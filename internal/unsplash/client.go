package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	unsplashBaseURL  = "https://api.unsplash.com"
	clientTimeout    = 15 * time.Second
	maxResponseBytes = 256 * 1024

	// defaultQuery 兜底配图的主题
	defaultQuery = "tech"
)

// Client 兜底配图来源：页面没有可用配图时，从 Unsplash 随机取一张科技主题图片
type Client struct {
	AccessKey string
	Query     string

	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(accessKey string) *Client {
	return &Client{
		AccessKey:  accessKey,
		Query:      defaultQuery,
		BaseURL:    unsplashBaseURL,
		HTTPClient: &http.Client{Timeout: clientTimeout},
	}
}

// ImageURL 返回一张随机图片的地址。seed 仅用于日志排查，
// Unsplash 的随机接口本身不接受种子参数。
func (c *Client) ImageURL(ctx context.Context, seed string) (string, error) {
	q := url.Values{}
	q.Set("query", c.Query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/photos/random?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Client-ID "+c.AccessKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unsplash: random photo (seed=%s): %w", seed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unsplash: random photo (seed=%s): unexpected status %d", seed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	var out struct {
		URLs struct {
			Small string `json:"small"`
		} `json:"urls"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unsplash: decode response: %w", err)
	}
	if out.URLs.Small == "" {
		return "", fmt.Errorf("unsplash: empty image url in response")
	}
	return out.URLs.Small, nil
}
