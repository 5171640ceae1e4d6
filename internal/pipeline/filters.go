package pipeline

import (
	"regexp"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/social"
)

// httpURLPattern 判定一个字符串是否是 http/https 链接（大小写不敏感）
var httpURLPattern = regexp.MustCompile(`(?i)^https?://`)

// afterReferenceMoment 只保留严格晚于参考时间点的帖子，
// 恰好等于参考时间点的帖子不计入
func afterReferenceMoment(posts []social.Status, ref time.Time) []social.Status {
	out := make([]social.Status, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt.After(ref) {
			out = append(out, p)
		}
	}
	return out
}

// extractLinks 按帖子顺序抽取外链：优先 card.url，兼容 entities.urls，
// 单帖多条链接保持其内嵌顺序，没有外链的帖子不产出任何元素
func extractLinks(posts []social.Status) []string {
	var links []string
	for _, p := range posts {
		if p.Card != nil && p.Card.URL != "" {
			links = append(links, p.Card.URL)
			continue
		}
		if p.Entities != nil {
			for _, u := range p.Entities.URLs {
				if u.ExpandedURL != "" {
					links = append(links, u.ExpandedURL)
				}
			}
		}
	}
	return links
}

// unique 值去重，保留首次出现，维持相对顺序
func unique(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// uniqueByURL 按 canonical URL 去重，保留首次出现。
// URL 为空的链接归为同一组，最多只有一条能幸存。
func uniqueByURL(links []*Link) []*Link {
	seen := make(map[string]struct{}, len(links))
	out := make([]*Link, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}

// removeInvalid 丢弃空串占位与非 http(s) 链接
func removeInvalid(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if httpURLPattern.MatchString(l) {
			out = append(out, l)
		}
	}
	return out
}

// removeInvalidLinks 是 removeInvalid 的包装对象版本：以 ID 字段为准
func removeInvalidLinks(links []*Link) []*Link {
	out := make([]*Link, 0, len(links))
	for _, l := range links {
		if l == nil {
			continue
		}
		if httpURLPattern.MatchString(l.ID) {
			out = append(out, l)
		}
	}
	return out
}

// removeBlacklisted 过滤掉往期已用过的链接；查找集合每次调用只构建一次
func removeBlacklisted(links []string, blacklist []string) []string {
	b := make(map[string]struct{}, len(blacklist))
	for _, u := range blacklist {
		b[u] = struct{}{}
	}

	out := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := b[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// withTitleAndDescription 丢弃抓取失败（nil）以及标题或描述为空的链接，
// 标题和描述必须同时非空
func withTitleAndDescription(links []*Link) []*Link {
	out := make([]*Link, 0, len(links))
	for _, l := range links {
		if l == nil || l.Title == "" || l.Description == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// takeN 取前 n 条；不足 n 条时原样返回
func takeN(links []*Link, n int) []*Link {
	if n < 0 {
		n = 0
	}
	if len(links) <= n {
		return links
	}
	return links[:n]
}
