package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

const (
	// scrapeTimeout 单次抓取的整体超时
	scrapeTimeout = 10 * time.Second

	scraperUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Scraper 抓取页面的 Open Graph / Twitter card 元数据。
// 普通 HTTP 抓取拿不到任何字段且配置了旁路服务时，会退而求其次
// 调用 chromedp 旁路渲染一次（应对纯前端渲染的页面）。
type Scraper struct {
	Timeout time.Duration

	// Browser 可选的 chromedp 旁路抓取服务，为 nil 时禁用
	Browser *BrowserClient
}

func NewScraper(browser *BrowserClient) *Scraper {
	return &Scraper{
		Timeout: scrapeTimeout,
		Browser: browser,
	}
}

// Scrape 抓取单个链接的元数据；网络失败或超时原样返回错误，
// 由流水线把该链接降级处理
func (s *Scraper) Scrape(ctx context.Context, link string) (*pipeline.Metadata, error) {
	md, err := s.scrapeHTTP(link)
	if err == nil && !isEmpty(md) {
		return md, nil
	}

	if s.Browser != nil {
		if bmd, berr := s.Browser.Scrape(ctx, link); berr == nil && !isEmpty(bmd) {
			return bmd, nil
		}
	}

	if err != nil {
		return nil, err
	}
	return md, nil
}

func (s *Scraper) scrapeHTTP(link string) (*pipeline.Metadata, error) {
	c := colly.NewCollector(
		colly.UserAgent(scraperUserAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(s.Timeout)

	md := &pipeline.Metadata{}

	c.OnHTML("head > title", func(e *colly.HTMLElement) {
		if md.Title == "" {
			md.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnHTML("meta[property][content]", func(e *colly.HTMLElement) {
		content := strings.TrimSpace(e.Attr("content"))
		if content == "" {
			return
		}
		switch strings.ToLower(e.Attr("property")) {
		case "og:title":
			setIfEmpty(&md.OGTitle, content)
		case "og:description":
			setIfEmpty(&md.OGDescription, content)
		case "og:url":
			setIfEmpty(&md.OGURL, content)
		case "og:image":
			setIfEmpty(&md.OGImage, content)
		}
	})

	c.OnHTML("meta[name][content]", func(e *colly.HTMLElement) {
		content := strings.TrimSpace(e.Attr("content"))
		if content == "" {
			return
		}
		switch strings.ToLower(e.Attr("name")) {
		case "description":
			setIfEmpty(&md.Description, content)
		case "twitter:description":
			setIfEmpty(&md.TwitterDescription, content)
		case "twitter:image:src", "twitter:image":
			setIfEmpty(&md.TwitterImageSrc, content)
		}
	})

	if err := c.Visit(link); err != nil {
		return nil, err
	}
	c.Wait()

	return md, nil
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func isEmpty(md *pipeline.Metadata) bool {
	return md == nil || (md.Title == "" && md.OGTitle == "" && md.OGDescription == "" &&
		md.Description == "" && md.TwitterDescription == "")
}
