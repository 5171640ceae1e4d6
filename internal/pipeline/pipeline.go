package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/social"
)

// StatusSource 帖子来源（Mastodon 时间线）
type StatusSource interface {
	RecentStatuses(ctx context.Context) ([]social.Status, error)
}

// Unshortener 短链解析：发起一次不跟随跳转的请求并读取 Location 头。
// 没有跳转时返回空串，由调用方保留原链接。
type Unshortener interface {
	Resolve(ctx context.Context, link string) (string, error)
}

// EngagementAPI 互动数据查询（Facebook Graph 风格的 URL 对象接口）
type EngagementAPI interface {
	URLInfo(ctx context.Context, link string) (*URLInfo, error)
}

// MetadataScraper 页面元数据抓取
type MetadataScraper interface {
	Scrape(ctx context.Context, link string) (*Metadata, error)
}

// FallbackImageProvider 兜底配图来源，seed 用于让不同链接拿到不同图片
type FallbackImageProvider interface {
	ImageURL(ctx context.Context, seed string) (string, error)
}

// Options 单次流水线运行的参数
type Options struct {
	// ReferenceMoment 参考时间点，只统计严格晚于它的帖子
	ReferenceMoment time.Time
	// NumResults 最终保留的链接数量
	NumResults int
	// BlacklistedURLs 往期已用过、本期需要排除的链接
	BlacklistedURLs []string
}

// Pipeline 把最近的社交帖子浓缩成一小批去重、验证、配齐元数据并按
// 互动热度排序的链接。阶段顺序是正确性契约的一部分：后面的阶段依赖
// 前面建立的性质（例如打分阶段假定 canonical 去重已经完成），任何
// 阶段失败整个运行立即失败，不返回部分结果。
type Pipeline struct {
	Source      StatusSource
	Unshortener Unshortener
	Engagement  EngagementAPI
	Metadata    MetadataScraper
	Images      FallbackImageProvider
}

// Run 执行一次完整的链接精选
func (p *Pipeline) Run(ctx context.Context, opt Options) ([]CuratedLink, error) {
	if p.Source == nil || p.Unshortener == nil || p.Engagement == nil || p.Metadata == nil || p.Images == nil {
		return nil, errors.New("pipeline: missing collaborator")
	}

	posts, err := p.Source.RecentStatuses(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline: fetched %d posts", len(posts))

	recent := afterReferenceMoment(posts, opt.ReferenceMoment)
	links := unique(extractLinks(recent))
	log.Printf("pipeline: %d posts after %s, %d distinct links", len(recent), opt.ReferenceMoment.Format(time.RFC3339), len(links))

	links, err = unshortenAll(ctx, p.Unshortener, links)
	if err != nil {
		return nil, err
	}

	links = removeInvalid(links)
	links, err = normalizeAll(links)
	if err != nil {
		return nil, err
	}
	links = unique(links)
	links = removeBlacklisted(links, opt.BlacklistedURLs)
	log.Printf("pipeline: %d candidate links after normalize/blacklist", len(links))

	enriched, err := fetchEngagement(ctx, p.Engagement, links)
	if err != nil {
		return nil, err
	}

	enriched = retrieveMetadata(ctx, p.Metadata, enriched)
	enriched = withTitleAndDescription(enriched)
	enriched = removeInvalidLinks(enriched)
	enriched = addCanonicalURLs(enriched)
	enriched = uniqueByURL(enriched)
	log.Printf("pipeline: %d links with metadata", len(enriched))

	scoreAll(enriched)
	sortByScore(enriched)
	enriched = takeN(enriched, opt.NumResults)

	enriched, err = addImageURLs(ctx, p.Images, enriched)
	if err != nil {
		return nil, err
	}

	result := keepMinimalData(enriched)
	log.Printf("pipeline: selected %d links", len(result))
	return result, nil
}

// keepMinimalData 收敛到最小公开形态，丢弃沿途积累的中间字段
func keepMinimalData(links []*Link) []CuratedLink {
	out := make([]CuratedLink, 0, len(links))
	for _, l := range links {
		out = append(out, CuratedLink{
			Title:       l.Title,
			URL:         l.URL,
			Description: l.Description,
			Image:       l.Image,
			Score:       l.Score,
		})
	}
	return out
}
