package pipeline

import "sort"

// calculateScore 互动得分 = 点赞 + 评论 + 转发 + 评论插件计数，
// 缺失的计数按 0 计，完全没有互动数据的链接得 0 分
func calculateScore(e *Engagement) int {
	if e == nil {
		return 0
	}
	return int(e.ReactionCount + e.CommentCount + e.ShareCount + e.CommentPluginCount)
}

// scoreAll 为每条链接计算得分。得分只在这里赋值一次，下游不再重算。
func scoreAll(links []*Link) []*Link {
	for _, l := range links {
		l.Score = calculateScore(l.Engagement)
	}
	return links
}

// sortByScore 按得分降序稳定排序，同分保持输入相对顺序
func sortByScore(links []*Link) []*Link {
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Score > links[j].Score
	})
	return links
}
