package main

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fullstackbulletin/NewsletterHub/internal/api"
	"github.com/fullstackbulletin/NewsletterHub/internal/campaign"
	"github.com/fullstackbulletin/NewsletterHub/internal/cloudinary"
	"github.com/fullstackbulletin/NewsletterHub/internal/config"
	"github.com/fullstackbulletin/NewsletterHub/internal/facebook"
	"github.com/fullstackbulletin/NewsletterHub/internal/issue"
	"github.com/fullstackbulletin/NewsletterHub/internal/metadata"
	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
	"github.com/fullstackbulletin/NewsletterHub/internal/scheduler"
	"github.com/fullstackbulletin/NewsletterHub/internal/social"
	"github.com/fullstackbulletin/NewsletterHub/internal/storage"
	"github.com/fullstackbulletin/NewsletterHub/internal/unshorten"
	"github.com/fullstackbulletin/NewsletterHub/internal/unsplash"
)

func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	svc := newIssueService(cfg, store)

	// 每周定时发刊
	s, err := scheduler.New(cfg.CronSpec, svc)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, svc)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// newIssueService 组装流水线与各外部服务客户端
func newIssueService(cfg *config.Config, store *storage.Store) *issue.Service {
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

	// 配置了 Cloudinary 才做配图转存，否则直接引用原图
	var images issue.ImageUploader
	if cfg.CloudinaryCloudName != "" {
		images = cloudinary.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}

	mail := campaign.NewMailchimpClient(cfg.MailchimpAPIKey)

	return issue.NewService(cfg, p, store, mail, images)
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
