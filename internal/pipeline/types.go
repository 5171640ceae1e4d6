package pipeline

import (
	"bytes"
	"fmt"
	"strconv"
)

// Count 是互动计数器。部分接口会把数字编码成字符串返回，
// 反序列化时统一转成整数，缺失/null 视为 0。
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	b = bytes.Trim(b, `"`)
	if len(b) == 0 {
		*c = 0
		return nil
	}

	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// 兼容 "12.0" 这类浮点编码
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return fmt.Errorf("pipeline: invalid count %q", b)
		}
		n = int64(f)
	}
	*c = Count(n)
	return nil
}

// Engagement 社交互动计数，排名的唯一信号来源
type Engagement struct {
	ReactionCount      Count `json:"reaction_count"`
	CommentCount       Count `json:"comment_count"`
	ShareCount         Count `json:"share_count"`
	CommentPluginCount Count `json:"comment_plugin_count"`
}

// OGObject 是互动 API 随互动数据一并返回的预置标题/描述，
// 优先级高于页面抓取到的元数据
type OGObject struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// URLInfo 互动 API 对单个链接的原始响应
type URLInfo struct {
	ID         string      `json:"id"`
	Engagement *Engagement `json:"engagement"`
	OGObject   *OGObject   `json:"og_object"`
}

// Metadata 页面抓取到的 Open Graph / Twitter card 元数据
type Metadata struct {
	Title              string
	Description        string
	OGTitle            string
	OGDescription      string
	OGURL              string
	OGImage            string
	TwitterDescription string
	TwitterImageSrc    string
}

// Link 在流水线中逐阶段充实的候选链接。
// ID 是进入互动查询时的链接（已规范化），URL 是最终选定的 canonical 链接，
// 两者在 canonical 阶段之前不同时有意义。
type Link struct {
	ID  string
	URL string

	Engagement *Engagement
	OGObject   *OGObject
	Metadata   *Metadata

	Title       string
	Description string
	Image       string

	Score int
}

// CuratedLink 是交给下游排版/存储的最小公开形态
type CuratedLink struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Score       int    `json:"score"`
}
