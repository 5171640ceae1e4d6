package cloudinary

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("demo", "api-key", "api-secret", "issues")
	c.APIBaseURL = srv.URL
	c.DeliveryBaseURL = "https://res.example"
	return c
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestPublicIDIsStable(t *testing.T) {
	c := NewClient("demo", "k", "s", "issues")
	got := c.publicID("https://img.example/cover.png")
	want := "issues/" + md5hex("https://img.example/cover.png") + ".jpg"
	if got != want {
		t.Fatalf("publicID = %q, want %q", got, want)
	}
	if got != c.publicID("https://img.example/cover.png") {
		t.Fatalf("publicID should be deterministic")
	}
}

func TestUploadAllSkipsExistingResources(t *testing.T) {
	var (
		mu      sync.Mutex
		uploads []string
	)
	existingID := "issues/" + md5hex("https://img.example/old.png") + ".jpg"

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/resources/image/upload/"):
			user, pass, _ := r.BasicAuth()
			if user != "api-key" || pass != "api-secret" {
				t.Fatalf("basic auth = %q %q", user, pass)
			}
			if strings.HasSuffix(r.URL.Path, existingID) {
				fmt.Fprint(w, `{"public_id":"x"}`)
				return
			}
			http.Error(w, `{"error":{"message":"not found"}}`, http.StatusNotFound)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/demo/image/upload"):
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			if r.PostForm.Get("signature") == "" || r.PostForm.Get("timestamp") == "" {
				t.Fatalf("unsigned upload: %v", r.PostForm)
			}
			mu.Lock()
			uploads = append(uploads, r.PostForm.Get("file"))
			mu.Unlock()
			fmt.Fprint(w, `{"public_id":"x"}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	links := []pipeline.CuratedLink{
		{URL: "https://a.example", Image: "https://img.example/old.png"},
		{URL: "https://b.example", Image: "https://img.example/new.png"},
	}
	got, err := c.UploadAll(context.Background(), links)
	if err != nil {
		t.Fatalf("UploadAll error: %v", err)
	}

	// 已存在的资源不重复上传
	if len(uploads) != 1 || uploads[0] != "https://img.example/new.png" {
		t.Fatalf("uploads = %v, want only the new image", uploads)
	}

	// 输出顺序与输入一致，地址替换为带裁剪参数的交付地址
	if len(got) != 2 || got[0].URL != "https://a.example" || got[1].URL != "https://b.example" {
		t.Fatalf("order broken: %+v", got)
	}
	wantPrefix := "https://res.example/demo/image/upload/c_fill,g_face,h_240,q_80,w_500/issues/"
	for i, l := range got {
		if !strings.HasPrefix(l.Image, wantPrefix) {
			t.Fatalf("got[%d].Image = %q", i, l.Image)
		}
	}
}

func TestUploadAllFailsWhenAnyUploadFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.Error(w, `{}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":{"message":"invalid image file"}}`, http.StatusBadRequest)
	})

	_, err := c.UploadAll(context.Background(), []pipeline.CuratedLink{
		{URL: "https://a.example", Image: "https://img.example/broken.png"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid image file") {
		t.Fatalf("err = %v, want upload failure surfaced", err)
	}
}

func TestSignExcludesFileAndAPIKey(t *testing.T) {
	c := NewClient("demo", "api-key", "secret", "issues")

	params := url.Values{}
	params.Set("file", "https://img.example/a.png")
	params.Set("api_key", "api-key")
	params.Set("public_id", "issues/abc.jpg")
	params.Set("timestamp", "1700000000")

	got := c.sign(params)

	// 只对 public_id 与 timestamp 排序拼接后签名
	want := c.sign(url.Values{
		"public_id": {"issues/abc.jpg"},
		"timestamp": {"1700000000"},
	})
	if got != want {
		t.Fatalf("sign = %q, want %q", got, want)
	}
	if len(got) != 40 {
		t.Fatalf("sign length = %d, want 40 hex chars", len(got))
	}
}
