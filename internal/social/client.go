package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	socialMaxResponseBytes = 4 << 20 // 4MB，单次时间线响应上限
	socialClientTimeout    = 15 * time.Second
	socialPageSize         = 40 // Mastodon 单页最大条数
)

// Status 是来自 Mastodon 的一条帖子。只读取创建时间与外链引用，
// 其余字段一律忽略。外链优先取 card.url，老式数据兼容 entities.urls。
type Status struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Card      *Card     `json:"card"`
	Entities  *Entities `json:"entities"`
}

type Card struct {
	URL string `json:"url"`
}

type Entities struct {
	URLs []EntityURL `json:"urls"`
}

type EntityURL struct {
	ExpandedURL string `json:"expanded_url"`
}

type account struct {
	ID string `json:"id"`
}

// Client 按 Mastodon REST API 拉取账号时间线
type Client struct {
	BaseURL     string
	AccessToken string

	// MaxStatuses 限制单账号最多拉取的帖子数
	MaxStatuses int

	HTTPClient *http.Client
}

func NewClient(baseURL, accessToken string, maxStatuses int) *Client {
	return &Client{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		MaxStatuses: maxStatuses,
		HTTPClient:  &http.Client{Timeout: socialClientTimeout},
	}
}

// VerifyCredentials 校验访问令牌并返回账号 ID
func (c *Client) VerifyCredentials(ctx context.Context) (string, error) {
	var acc account
	if err := c.getJSON(ctx, "/api/v1/accounts/verify_credentials", nil, &acc); err != nil {
		return "", fmt.Errorf("social: verify credentials: %w", err)
	}
	if acc.ID == "" {
		return "", fmt.Errorf("social: verify credentials: empty account id")
	}
	return acc.ID, nil
}

// AccountStatuses 拉取指定账号最近的帖子，按 API 返回顺序（新到旧）翻页直到
// 累计 MaxStatuses 条或没有更多数据
func (c *Client) AccountStatuses(ctx context.Context, accountID string) ([]Status, error) {
	var all []Status
	maxID := ""

	for len(all) < c.MaxStatuses {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(socialPageSize))
		q.Set("exclude_replies", "true")
		if maxID != "" {
			q.Set("max_id", maxID)
		}

		var page []Status
		path := "/api/v1/accounts/" + url.PathEscape(accountID) + "/statuses"
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return nil, fmt.Errorf("social: account statuses: %w", err)
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		maxID = page[len(page)-1].ID
	}

	if len(all) > c.MaxStatuses {
		all = all[:c.MaxStatuses]
	}
	return all, nil
}

// RecentStatuses 是流水线使用的入口：先校验凭证再拉取时间线
func (c *Client) RecentStatuses(ctx context.Context) ([]Status, error) {
	id, err := c.VerifyCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return c.AccountStatuses(ctx, id)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, socialMaxResponseBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
