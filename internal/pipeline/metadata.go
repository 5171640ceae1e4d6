package pipeline

import (
	"context"
	"log"
)

// metadataConcurrency 元数据抓取阶段的最大在途请求数
const metadataConcurrency = 10

// retrieveMetadata 并发抓取每条链接的页面元数据并按优先级合成
// 标题/描述/配图。单条抓取失败只把该位置降级为 nil（稍后由内容
// 过滤阶段剔除），不影响整批。
//
// 字段优先级（先到先得）：
//   - 标题：互动 API 预置标题 -> og:title -> <title>
//   - 描述：互动 API 预置描述 -> og:description -> twitter:description -> meta description
//   - 配图：og:image -> twitter:image:src（此处不做兜底，兜底在配图阶段）
func retrieveMetadata(ctx context.Context, scraper MetadataScraper, links []*Link) []*Link {
	out, _ := mapLimit(links, metadataConcurrency, func(_ int, l *Link) (*Link, error) {
		md, err := scraper.Scrape(ctx, l.ID)
		if err != nil {
			log.Printf("pipeline: metadata %s: %v (dropping)", l.ID, err)
			return nil, nil
		}

		l.Metadata = md
		l.Title = firstNonEmpty(presetTitle(l), md.OGTitle, md.Title)
		l.Description = firstNonEmpty(presetDescription(l), md.OGDescription, md.TwitterDescription, md.Description)
		l.Image = firstNonEmpty(md.OGImage, md.TwitterImageSrc)
		return l, nil
	})
	return out
}

func presetTitle(l *Link) string {
	if l.OGObject == nil {
		return ""
	}
	return l.OGObject.Title
}

func presetDescription(l *Link) string {
	if l.OGObject == nil {
		return ""
	}
	return l.OGObject.Description
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
