package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

type metadataRequest struct {
	URL string `json:"url"`
}

type pageMetadata struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	OGTitle            string `json:"ogTitle"`
	OGDescription      string `json:"ogDescription"`
	OGURL              string `json:"ogUrl"`
	OGImage            string `json:"ogImage"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImageSrc    string `json:"twitterImageSrc"`
}

type metadataResponse struct {
	OK       bool          `json:"ok"`
	Metadata *pageMetadata `json:"metadata,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// 无头浏览器旁路服务：对纯前端渲染的页面，普通 HTTP 抓取拿不到
// meta 标签，这里渲染之后再读取 Open Graph / Twitter card 元数据
func main() {
	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metadata", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req metadataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, metadataResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, metadataResponse{OK: false, Error: "url is required"})
			return
		}

		// 每个请求用独立的超时上下文，复用同一个 browserCtx
		ctx, cancel := context.WithTimeout(browserCtx, 20*time.Second)
		defer cancel()

		var md pageMetadata
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS(), &md),
		)
		if err != nil {
			log.Printf("metadata error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, metadataResponse{OK: false, Error: err.Error()})
			return
		}

		md.Title = strings.TrimSpace(md.Title)
		if md.Title == "" && md.OGTitle == "" {
			writeJSON(w, http.StatusOK, metadataResponse{OK: false, Error: "no metadata found"})
			return
		}

		writeJSON(w, http.StatusOK, metadataResponse{OK: true, Metadata: &md})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-scraper listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// extractJS 返回一段 JS，在渲染后的页面里读取标题与各 meta 标签
func extractJS() string {
	return `(function () {
  function meta(selector) {
    var el = document.querySelector(selector);
    if (!el) return "";
    return (el.getAttribute("content") || "").trim();
  }

  return {
    title: (document.title || "").trim(),
    description: meta('meta[name="description"]'),
    ogTitle: meta('meta[property="og:title"]'),
    ogDescription: meta('meta[property="og:description"]'),
    ogUrl: meta('meta[property="og:url"]'),
    ogImage: meta('meta[property="og:image"]'),
    twitterDescription: meta('meta[name="twitter:description"]'),
    twitterImageSrc: meta('meta[name="twitter:image:src"]') || meta('meta[name="twitter:image"]')
  };
})();`
}
