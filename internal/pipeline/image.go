package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/url"
)

// isUsableImageURL 判定配图地址是否可用：必须能解析成绝对 URL，
// 且 host 与 path 均非空。裸域名（无路径）的配图一律视为不可用。
func isUsableImageURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != "" && u.Path != ""
}

// addImageURLs 为每条链接补齐配图：元数据里有可用的 og:image /
// twitter:image:src 就用，否则向兜底图库要一张。兜底图库出错视为
// 致命错误：此时已是精选后的少量链接，缺图的期刊不该发出去。
func addImageURLs(ctx context.Context, provider FallbackImageProvider, links []*Link) ([]*Link, error) {
	for _, l := range links {
		image := ""
		if l.Metadata != nil {
			image = firstNonEmpty(l.Metadata.OGImage, l.Metadata.TwitterImageSrc)
		}

		if !isUsableImageURL(image) {
			fallback, err := provider.ImageURL(ctx, l.URL)
			if err != nil {
				return nil, fmt.Errorf("pipeline: fallback image for %s: %w", l.URL, err)
			}
			log.Printf("pipeline: invalid image %q for %s, using fallback", image, l.URL)
			image = fallback
		}
		l.Image = image
	}
	return links, nil
}
