package pipeline

import (
	"context"
	"log"
)

// unshortenConcurrency 解短链阶段的最大在途请求数
const unshortenConcurrency = 10

// unshortenAll 并发解析短链：有 Location 响应头用其值，没有则保留原链接。
// 单条请求失败只把该位置降级为空串占位（稍后由校验阶段剔除），
// 不会让整批失败；输出顺序与输入一一对应。
func unshortenAll(ctx context.Context, resolver Unshortener, links []string) ([]string, error) {
	return mapLimit(links, unshortenConcurrency, func(_ int, link string) (string, error) {
		target, err := resolver.Resolve(ctx, link)
		if err != nil {
			log.Printf("pipeline: unshorten %s: %v (dropping)", link, err)
			return "", nil
		}
		if target == "" {
			return link, nil
		}
		return target, nil
	})
}
