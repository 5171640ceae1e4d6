package cloudinary

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

const (
	apiBaseURL = "https://api.cloudinary.com/v1_1"
	resBaseURL = "https://res.cloudinary.com"

	clientTimeout    = 60 * time.Second
	maxResponseBytes = 256 * 1024

	// uploadConcurrency 图片上传的最大在途请求数
	uploadConcurrency = 7

	// transformation 落版使用的统一裁剪参数（500x240 填充裁剪，人脸优先）
	transformation = "c_fill,g_face,h_240,q_80,w_500"
)

// Client 把精选链接的配图转存到 Cloudinary，邮件里引用转存后的稳定地址。
// public ID 取配图地址的 md5，同一张图重复运行不会重复上传。
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	APIBaseURL      string
	DeliveryBaseURL string
	HTTPClient      *http.Client
}

func NewClient(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		CloudName:       cloudName,
		APIKey:          apiKey,
		APISecret:       apiSecret,
		Folder:          folder,
		APIBaseURL:      apiBaseURL,
		DeliveryBaseURL: resBaseURL,
		HTTPClient:      &http.Client{Timeout: clientTimeout},
	}
}

// UploadAll 转存一批链接的配图，输出顺序与输入一致。任一上传失败
// 整批失败：配图残缺的期刊不应该发出去。
func (c *Client) UploadAll(ctx context.Context, links []pipeline.CuratedLink) ([]pipeline.CuratedLink, error) {
	results := make([]pipeline.CuratedLink, len(links))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, uploadConcurrency)
		firstErr error
	)

	for i, link := range links {
		mu.Lock()
		stop := firstErr != nil
		mu.Unlock()
		if stop {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, link pipeline.CuratedLink) {
			defer wg.Done()
			defer func() { <-sem }()

			hosted, err := c.retrieveOrUpload(ctx, link.Image)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("cloudinary: upload image for %s: %w", link.URL, err)
				}
				mu.Unlock()
				return
			}
			link.Image = hosted
			results[i] = link
		}(i, link)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// retrieveOrUpload 先查资源是否已存在，不存在才上传，返回带裁剪参数的交付地址
func (c *Client) retrieveOrUpload(ctx context.Context, imageURL string) (string, error) {
	publicID := c.publicID(imageURL)

	exists, err := c.exists(ctx, publicID)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := c.upload(ctx, imageURL, publicID); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%s/%s/image/upload/%s/%s", c.DeliveryBaseURL, c.CloudName, transformation, publicID), nil
}

func (c *Client) publicID(imageURL string) string {
	sum := md5.Sum([]byte(imageURL))
	return c.Folder + "/" + hex.EncodeToString(sum[:]) + ".jpg"
}

func (c *Client) exists(ctx context.Context, publicID string) (bool, error) {
	u := fmt.Sprintf("%s/%s/resources/image/upload/%s", c.APIBaseURL, c.CloudName, publicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(c.APIKey, c.APISecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("resource lookup: unexpected status %d", resp.StatusCode)
	}
}

// upload 走签名上传接口，file 直接传远程图片地址，由 Cloudinary 拉取
func (c *Client) upload(ctx context.Context, imageURL, publicID string) error {
	params := url.Values{}
	params.Set("file", imageURL)
	params.Set("public_id", publicID)
	params.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("api_key", c.APIKey)
	params.Set("signature", c.sign(params))

	u := fmt.Sprintf("%s/%s/image/upload", c.APIBaseURL, c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var out struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &out)
		return fmt.Errorf("upload: status %d: %s", resp.StatusCode, out.Error.Message)
	}
	return nil
}

// sign 按 Cloudinary 规则签名：除 file/api_key 外的参数按 key 排序拼接后
// 追加 API secret 做 SHA1
func (c *Client) sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "file" || k == "api_key" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}
