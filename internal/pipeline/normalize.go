package pipeline

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// directoryIndexPattern 匹配默认文档段，例如 index.html / index.php
var directoryIndexPattern = regexp.MustCompile(`^index\.[a-z0-9]+$`)

// normalizeURL 把 URL 规范成确定形态：scheme/host 小写、去默认端口、
// 去 fragment、折叠尾部斜杠与默认文档段、查询参数按字母序排序。
// 对已规范化的输入再次调用必须返回原值（幂等）。
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("not an absolute url: %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		// IPv6 字面量需要保留方括号
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host += ":" + port
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""

	path := u.Path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		if directoryIndexPattern.MatchString(path[idx+1:]) {
			path = path[:idx+1]
		}
	}
	path = strings.TrimSuffix(path, "/")
	u.Path = path
	u.RawPath = ""

	if u.RawQuery != "" {
		// url.Values.Encode 按 key 排序，保证参数顺序确定
		u.RawQuery = u.Query().Encode()
	}
	u.ForceQuery = false

	return u.String(), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// normalizeAll 规范化整个序列；单条失败视为致命错误向上传播
func normalizeAll(links []string) ([]string, error) {
	out := make([]string, len(links))
	for i, l := range links {
		n, err := normalizeURL(l)
		if err != nil {
			return nil, fmt.Errorf("pipeline: normalize %s: %w", l, err)
		}
		out[i] = n
	}
	return out, nil
}

// addCanonicalURLs 为每条链接选定 canonical URL：优先页面声明的 og:url，
// 否则用原链接。相对地址基于原链接补全成绝对地址后再做规范化。
// 彻底无法解析的链接 URL 置空，由后续按 URL 去重的阶段归并处理。
func addCanonicalURLs(links []*Link) []*Link {
	for _, l := range links {
		candidate := l.ID
		if l.Metadata != nil && l.Metadata.OGURL != "" {
			candidate = l.Metadata.OGURL
		}
		l.URL = resolveCanonical(candidate, l.ID)
	}
	return links
}

func resolveCanonical(candidate, base string) string {
	u, err := url.Parse(candidate)
	if err != nil || !u.IsAbs() {
		// canonical 是相对地址（或残缺），尝试基于原链接构造绝对地址
		b, berr := url.Parse(base)
		if berr != nil {
			return ""
		}
		ref, rerr := url.Parse(candidate)
		if rerr != nil {
			return ""
		}
		u = b.ResolveReference(ref)
	}

	n, err := normalizeURL(u.String())
	if err != nil {
		return ""
	}
	return n
}
