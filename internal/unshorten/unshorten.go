package unshorten

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	clientTimeout = 10 * time.Second
	maxDrainBytes = 64 << 10 // 只为复用连接排空少量 body
)

// Client 短链解析器：发起一次不跟随跳转的 GET，读取 Location 响应头。
// 目标站点返回 3xx 时 Location 即为真实地址，2xx 时返回空串表示无跳转。
type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: clientTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Resolve 返回跳转目标；无跳转时返回空串，由调用方保留原链接
func (c *Client) Resolve(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return resp.Header.Get("Location"), nil
}
