package campaign

import "net/url"

const (
	utmSource = "fullstackbulletin.com"
	utmMedium = "newsletter"
)

// utmContents 每条链接需要生成跟踪地址的三个落点
var utmContents = []string{"title", "image", "description"}

// CampaignURLs 为一条链接生成带 UTM 跟踪参数的地址，按落点
// （标题/配图/描述）区分 utm_content，便于统计哪个位置被点击
func CampaignURLs(rawURL, campaignName string) map[string]string {
	out := make(map[string]string, len(utmContents))
	for _, content := range utmContents {
		out[content] = buildUTMURL(rawURL, campaignName, content)
	}
	return out
}

func buildUTMURL(rawURL, campaignName, content string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	q.Set("utm_source", utmSource)
	q.Set("utm_medium", utmMedium)
	q.Set("utm_campaign", campaignName)
	q.Set("utm_content", content)
	u.RawQuery = q.Encode()

	return u.String()
}
