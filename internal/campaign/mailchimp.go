package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

const (
	mailchimpTimeout    = 30 * time.Second
	maxMailchimpRespLen = 256 * 1024
)

// Settings 单期邮件战役的排版参数
type Settings struct {
	ListID     string
	TemplateID int

	From     string
	FromName string
	ReplyTo  string

	// CampaignName 战役名，同时作为 UTM 跟踪与黑名单的归属标识
	CampaignName string
	WeekNumber   int
	Year         int
}

// MailchimpClient 通过 Mailchimp v3 API 创建邮件战役并填充模板内容。
// API key 的后缀是数据中心标识（例如 xxxx-us6），端点由它推导。
type MailchimpClient struct {
	APIKey string

	BaseURL    string
	HTTPClient *http.Client
}

func NewMailchimpClient(apiKey string) *MailchimpClient {
	dc := ""
	if i := strings.LastIndex(apiKey, "-"); i >= 0 {
		dc = apiKey[i+1:]
	}
	return &MailchimpClient{
		APIKey:     apiKey,
		BaseURL:    fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dc),
		HTTPClient: &http.Client{Timeout: mailchimpTimeout},
	}
}

// CreateCampaign 创建一期战役并把精选链接写进模板分区，返回战役 ID。
// 主题行取头条链接的标题，邮件内的链接全部替换成带 UTM 参数的跟踪地址。
func (c *MailchimpClient) CreateCampaign(ctx context.Context, links []pipeline.CuratedLink, s Settings) (string, error) {
	if len(links) == 0 {
		return "", fmt.Errorf("campaign: no links to publish")
	}

	campaignData := map[string]any{
		"type": "regular",
		"recipients": map[string]any{
			"list_id": s.ListID,
		},
		"settings": map[string]any{
			"subject_line": fmt.Sprintf("🤓 fullstackBulletin issue %d: %s", s.WeekNumber, links[0].Title),
			"title":        s.CampaignName,
			"from":         s.From,
			"from_name":    s.FromName,
			"reply_to":     s.ReplyTo,
		},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/campaigns", campaignData, &created); err != nil {
		return "", fmt.Errorf("campaign: create: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("campaign: create: empty campaign id in response")
	}

	sections := map[string]any{
		"content_preview": links[0].Title,
		"title":           fmt.Sprintf("Best %d links of week #%d, %d", len(links), s.WeekNumber, s.Year),
	}
	for i, link := range links {
		urls := CampaignURLs(link.URL, s.CampaignName)
		label := LinkLabel(link.URL)

		sections[fmt.Sprintf("article_title_%d", i+1)] = anchor(urls["title"], link.Title)
		sections[fmt.Sprintf("article_description_%d", i+1)] = descriptionBlock(urls["description"], link.Description, label)
		sections[fmt.Sprintf("image_%d", i+1)] = anchor(urls["image"], image(link.Image, link.Title))
	}

	contentData := map[string]any{
		"template": map[string]any{
			"id":       s.TemplateID,
			"sections": sections,
		},
	}
	if err := c.do(ctx, http.MethodPut, "/campaigns/"+created.ID+"/content", contentData, nil); err != nil {
		return "", fmt.Errorf("campaign: set content: %w", err)
	}

	return created.ID, nil
}

func (c *MailchimpClient) do(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("anystring", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxMailchimpRespLen))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		return fmt.Errorf("mailchimp %s %s: status %d: %s %s", method, path, resp.StatusCode, apiErr.Title, apiErr.Detail)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("mailchimp %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// WeekOf 返回 ISO 周序号与年份，用于期刊标题
func WeekOf(t time.Time) (week, year int) {
	y, w := t.ISOWeek()
	return w, y
}

// CampaignName 用年份与周序号生成战役名（例如 fullstackbulletin-2025-37）
func CampaignName(t time.Time) string {
	week, year := WeekOf(t)
	return "fullstackbulletin-" + strconv.Itoa(year) + "-" + strconv.Itoa(week)
}
