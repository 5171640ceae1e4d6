package campaign

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestLinkLabel(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/user/repo", "View Repository"},
		{"https://gist.github.com/user/abc", "View Repository"},
		{"https://www.youtube.com/watch?v=abc", "Watch video"},
		{"https://vimeo.com/12345", "Watch video"},
		{"https://blog.example.com/post", "Read article"},
		{"://not-a-url", "Read article"},
		// 不许把 evilgithub.com 当成 github.com
		{"https://evilgithub.com/x", "Read article"},
	}
	for _, c := range cases {
		if got := LinkLabel(c.url); got != c.want {
			t.Fatalf("LinkLabel(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestCampaignURLs(t *testing.T) {
	urls := CampaignURLs("https://a.example/article?ref=1", "fullstackbulletin-2026-3")

	for _, content := range []string{"title", "image", "description"} {
		raw, ok := urls[content]
		if !ok {
			t.Fatalf("missing content %q", content)
		}
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		q := u.Query()
		if q.Get("utm_source") != "fullstackbulletin.com" || q.Get("utm_medium") != "newsletter" {
			t.Fatalf("utm source/medium wrong in %q", raw)
		}
		if q.Get("utm_campaign") != "fullstackbulletin-2026-3" {
			t.Fatalf("utm_campaign = %q", q.Get("utm_campaign"))
		}
		if q.Get("utm_content") != content {
			t.Fatalf("utm_content = %q, want %q", q.Get("utm_content"), content)
		}
		// 原有查询参数保留
		if q.Get("ref") != "1" {
			t.Fatalf("original query lost in %q", raw)
		}
	}
}

func TestEscapeAttrValue(t *testing.T) {
	got := escapeAttrValue(`a&b "quoted"` + " " + "end")
	want := `a&amp;b &quot;quoted&quot;` + "&nbsp;" + "end"
	if got != want {
		t.Fatalf("escapeAttrValue = %q, want %q", got, want)
	}
}

func TestAnchorEscapesHref(t *testing.T) {
	got := anchor(`https://a.example/?x=1&y="2"`, "text")
	if !strings.Contains(got, `href="https://a.example/?x=1&amp;y=&quot;2&quot;"`) {
		t.Fatalf("anchor = %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) || !strings.HasSuffix(got, ">text</a>") {
		t.Fatalf("anchor = %q", got)
	}
}

func TestImageEscapesAlt(t *testing.T) {
	got := image("https://img.example/a.png", `Tom & "Jerry"`)
	if !strings.Contains(got, `alt="Tom &amp; &quot;Jerry&quot;"`) {
		t.Fatalf("image = %q", got)
	}
	if !strings.Contains(got, `class="mcnImage"`) || !strings.Contains(got, `width="194"`) {
		t.Fatalf("image = %q", got)
	}
}

func TestWeekOf(t *testing.T) {
	// 2026-01-01 是周四，属于 2026 年第 1 个 ISO 周
	week, year := WeekOf(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	if week != 1 || year != 2026 {
		t.Fatalf("WeekOf = (%d, %d), want (1, 2026)", week, year)
	}

	// 2027-01-01 是周五，ISO 周仍归属 2026 年第 53 周
	week, year = WeekOf(time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC))
	if week != 53 || year != 2026 {
		t.Fatalf("WeekOf = (%d, %d), want (53, 2026)", week, year)
	}
}

func TestCampaignNameFormat(t *testing.T) {
	got := CampaignName(time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC))
	if got != "fullstackbulletin-2026-36" {
		t.Fatalf("CampaignName = %q", got)
	}
}
