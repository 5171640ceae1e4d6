package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

func TestNewMailchimpClientDerivesDatacenter(t *testing.T) {
	c := NewMailchimpClient("abc123-us6")
	if c.BaseURL != "https://us6.api.mailchimp.com/3.0" {
		t.Fatalf("BaseURL = %q", c.BaseURL)
	}
}

func TestCreateCampaign(t *testing.T) {
	var campaignBody, contentBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "anystring" || pass != "key-us6" {
			t.Fatalf("basic auth = %q %q", user, pass)
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/campaigns":
			if err := json.NewDecoder(r.Body).Decode(&campaignBody); err != nil {
				t.Fatalf("decode campaign body: %v", err)
			}
			fmt.Fprint(w, `{"id":"camp-1"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/campaigns/camp-1/content":
			if err := json.NewDecoder(r.Body).Decode(&contentBody); err != nil {
				t.Fatalf("decode content body: %v", err)
			}
			fmt.Fprint(w, `{}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewMailchimpClient("key-us6")
	c.BaseURL = srv.URL

	links := []pipeline.CuratedLink{
		{Title: "Top story", URL: "https://a.example/one", Description: "first", Image: "https://img.example/1.png", Score: 30},
		{Title: "Runner up", URL: "https://b.example/two", Description: "second", Image: "https://img.example/2.png", Score: 10},
	}
	id, err := c.CreateCampaign(context.Background(), links, Settings{
		ListID:       "list-1",
		TemplateID:   77,
		From:         "news@example.com",
		FromName:     "The Bulletin",
		ReplyTo:      "reply@example.com",
		CampaignName: "fullstackbulletin-2026-36",
		WeekNumber:   36,
		Year:         2026,
	})
	if err != nil {
		t.Fatalf("CreateCampaign error: %v", err)
	}
	if id != "camp-1" {
		t.Fatalf("id = %q", id)
	}

	settings := campaignBody["settings"].(map[string]any)
	if got := settings["subject_line"].(string); !strings.Contains(got, "Top story") {
		t.Fatalf("subject_line = %q", got)
	}
	if settings["title"] != "fullstackbulletin-2026-36" {
		t.Fatalf("title = %v", settings["title"])
	}
	recipients := campaignBody["recipients"].(map[string]any)
	if recipients["list_id"] != "list-1" {
		t.Fatalf("list_id = %v", recipients["list_id"])
	}

	tmpl := contentBody["template"].(map[string]any)
	if got := tmpl["id"].(float64); got != 77 {
		t.Fatalf("template id = %v", got)
	}
	sections := tmpl["sections"].(map[string]any)
	if sections["content_preview"] != "Top story" {
		t.Fatalf("content_preview = %v", sections["content_preview"])
	}

	title1 := sections["article_title_1"].(string)
	if !strings.Contains(title1, ">Top story</a>") {
		t.Fatalf("article_title_1 = %q", title1)
	}
	// 链接替换成带 UTM 参数的跟踪地址
	if !strings.Contains(title1, "utm_campaign=fullstackbulletin-2026-36") || !strings.Contains(title1, "utm_content=title") {
		t.Fatalf("article_title_1 missing utm params: %q", title1)
	}
	if _, ok := sections["article_description_2"]; !ok {
		t.Fatalf("missing section for second link")
	}
	if img := sections["image_2"].(string); !strings.Contains(img, "https://img.example/2.png") {
		t.Fatalf("image_2 = %q", img)
	}
}

func TestCreateCampaignRejectsEmptyLinks(t *testing.T) {
	c := NewMailchimpClient("key-us6")
	if _, err := c.CreateCampaign(context.Background(), nil, Settings{}); err == nil {
		t.Fatalf("CreateCampaign should reject empty link list")
	}
}

func TestCreateCampaignSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"title":"Invalid Resource","detail":"list does not exist"}`)
	}))
	defer srv.Close()

	c := NewMailchimpClient("key-us6")
	c.BaseURL = srv.URL

	_, err := c.CreateCampaign(context.Background(), []pipeline.CuratedLink{{Title: "x", URL: "https://a.example"}}, Settings{})
	if err == nil || !strings.Contains(err.Error(), "list does not exist") {
		t.Fatalf("err = %v, want API detail surfaced", err)
	}
}
