package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

const (
	graphBaseURL     = "https://graph.facebook.com"
	clientTimeout    = 15 * time.Second
	maxResponseBytes = 256 * 1024
)

// ErrUnexpectedResponse Graph API 返回了空响应或无法解析的内容。
// 与带 error 字段的正常错误响应区分开，便于上层定位问题。
var ErrUnexpectedResponse = errors.New("facebook: unexpected response")

// Client 查询 Facebook Graph 的 URL 对象接口，获取链接的互动计数。
// 访问令牌在首次调用时通过 client_credentials 流程自动获取并缓存。
type Client struct {
	AppID     string
	AppSecret string

	BaseURL    string
	HTTPClient *http.Client

	mu          sync.Mutex
	accessToken string
}

func NewClient(appID, appSecret string) *Client {
	return &Client{
		AppID:      appID,
		AppSecret:  appSecret,
		BaseURL:    graphBaseURL,
		HTTPClient: &http.Client{Timeout: clientTimeout},
	}
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type graphResponse struct {
	pipeline.URLInfo
	Error *graphError `json:"error"`
}

// URLInfo 查询单个链接的互动数据与预置的 og_object 信息
func (c *Client) URLInfo(ctx context.Context, link string) (*pipeline.URLInfo, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("id", link)
	q.Set("fields", "engagement,og_object")
	q.Set("access_token", token)

	body, err := c.get(ctx, "/?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("facebook: url info: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("facebook: url info for %s: %w", link, ErrUnexpectedResponse)
	}

	var res graphResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("facebook: url info for %s: %w: %v", link, ErrUnexpectedResponse, err)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("facebook: url info for %s: api error %d (%s): %s", link, res.Error.Code, res.Error.Type, res.Error.Message)
	}

	info := res.URLInfo
	if info.ID == "" {
		info.ID = link
	}
	return &info, nil
}

// token 返回缓存的访问令牌，没有时用 app 凭证换取一个
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" {
		return c.accessToken, nil
	}

	q := url.Values{}
	q.Set("client_id", c.AppID)
	q.Set("client_secret", c.AppSecret)
	q.Set("grant_type", "client_credentials")

	body, err := c.get(ctx, "/oauth/access_token?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("facebook: access token: %w", err)
	}

	var res struct {
		AccessToken string      `json:"access_token"`
		Error       *graphError `json:"error"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("facebook: access token: %w: %v", ErrUnexpectedResponse, err)
	}
	if res.Error != nil {
		return "", fmt.Errorf("facebook: access token: api error %d (%s): %s", res.Error.Code, res.Error.Type, res.Error.Message)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("facebook: access token: %w", ErrUnexpectedResponse)
	}

	c.accessToken = res.AccessToken
	return c.accessToken, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Graph API 的业务错误也带 JSON body，不按状态码短路，统一交给调用方解析
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
