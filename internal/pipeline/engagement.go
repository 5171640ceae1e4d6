package pipeline

import (
	"context"
	"fmt"
)

// engagementConcurrency 互动查询阶段的最大在途请求数
const engagementConcurrency = 10

// fetchEngagement 为每条链接查询互动数据。与解短链不同，这一阶段
// 是全有或全无：任一链接出错立即让整批失败，错误原样向上传播。
func fetchEngagement(ctx context.Context, api EngagementAPI, links []string) ([]*Link, error) {
	return mapLimit(links, engagementConcurrency, func(_ int, link string) (*Link, error) {
		info, err := api.URLInfo(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("pipeline: engagement for %s: %w", link, err)
		}

		id := info.ID
		if id == "" {
			id = link
		}
		return &Link{
			ID:         id,
			Engagement: info.Engagement,
			OGObject:   info.OGObject,
		}, nil
	})
}
