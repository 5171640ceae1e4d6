package campaign

import (
	"net/url"
	"strings"
)

// linkLabels 按域名定制的按钮文案
var linkLabels = map[string]string{
	"github.com":  "View Repository",
	"youtube.com": "Watch video",
	"vimeo.com":   "Watch video",
}

const defaultLinkLabel = "Read article"

// LinkLabel 根据链接域名返回按钮文案，未匹配的域名用默认文案
func LinkLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultLinkLabel
	}

	host := strings.ToLower(u.Hostname())
	for domain, label := range linkLabels {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return label
		}
	}
	return defaultLinkLabel
}
