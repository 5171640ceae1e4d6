package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/config"
	"github.com/fullstackbulletin/NewsletterHub/internal/facebook"
	"github.com/fullstackbulletin/NewsletterHub/internal/metadata"
	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
	"github.com/fullstackbulletin/NewsletterHub/internal/social"
	"github.com/fullstackbulletin/NewsletterHub/internal/unshorten"
	"github.com/fullstackbulletin/NewsletterHub/internal/unsplash"
)

// 一个仅执行一次链接精选并打印结果的命令行入口：
// 不创建邮件战役、不更新黑名单，适合发刊前人工预览
func main() {
	n := flag.Int("n", 0, "number of links to select (0 = use NUM_RESULTS)")
	flag.Parse()

	cfg := config.Load()
	if *n <= 0 {
		*n = cfg.NumResults
	}

	var browser *metadata.BrowserClient
	if cfg.BrowserScraperURL != "" {
		browser = metadata.NewBrowserClient(cfg.BrowserScraperURL)
	}

	p := &pipeline.Pipeline{
		Source:      social.NewClient(cfg.MastodonBaseURL, cfg.MastodonAccessToken, cfg.MaxStatusesPerAccount),
		Unshortener: unshorten.NewClient(),
		Engagement:  facebook.NewClient(cfg.FacebookAppID, cfg.FacebookAppSecret),
		Metadata:    metadata.NewScraper(browser),
		Images:      unsplash.NewClient(cfg.UnsplashAccessKey),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	links, err := p.Run(ctx, pipeline.Options{
		ReferenceMoment: config.ReferenceMoment(config.Now(), cfg.LookbackDays),
		NumResults:      *n,
	})
	if err != nil {
		log.Fatalf("curate failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		log.Fatalf("encode result failed: %v", err)
	}
}
