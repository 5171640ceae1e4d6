package campaign

import (
	"fmt"
	"strings"
)

// escapeAttrValue 转义 HTML 属性值里的 & 、双引号与不换行空格，
// 与邮件模板引擎的属性解析保持一致
func escapeAttrValue(v string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		`"`, "&quot;",
		" ", "&nbsp;",
	)
	return r.Replace(v)
}

func anchor(href, content string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, escapeAttrValue(href), content)
}

func image(src, title string) string {
	return fmt.Sprintf(`<img alt="%s" src="%s" width="194" style="max-width:500px;" class="mcnImage">`, escapeAttrValue(title), src)
}

func descriptionBlock(href, description, label string) string {
	return description + "<br/>" + anchor(href, label)
}
