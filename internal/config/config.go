package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort       string
	BasicAuthUser string
	BasicAuthPass string

	PostgresDSN string
	RedisAddr   string

	// CronSpec 控制每周刊发任务的触发时间，默认每周四 17:00 UTC
	CronSpec string

	MastodonBaseURL     string
	MastodonAccessToken string

	FacebookAppID     string
	FacebookAppSecret string

	MailchimpAPIKey     string
	MailchimpListID     string
	MailchimpTemplateID string
	MailchimpFrom       string
	MailchimpFromName   string
	MailchimpReplyTo    string

	UnsplashAccessKey string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	// BrowserScraperURL 可选：chromedp 旁路抓取服务地址，为空时禁用
	BrowserScraperURL string

	// NumResults 每期精选的链接数量
	NumResults int
	// LookbackDays 只统计最近 N 天内的帖子
	LookbackDays int
	// MaxStatusesPerAccount 单账号最多拉取的帖子数
	MaxStatusesPerAccount int
}

func Load() *Config {
	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),

		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=newsletterhub password=newsletterhub dbname=newsletterhub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		CronSpec: getEnv("CRON_SPEC", "0 17 * * 4"),

		MastodonBaseURL:     getEnv("MASTODON_BASE_URL", "https://mastodon.social"),
		MastodonAccessToken: getEnv("MASTODON_ACCESS_TOKEN", ""),

		FacebookAppID:     getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret: getEnv("FACEBOOK_APP_SECRET", ""),

		MailchimpAPIKey:     getEnv("MAILCHIMP_API_KEY", ""),
		MailchimpListID:     getEnv("MAILCHIMP_LIST_ID", ""),
		MailchimpTemplateID: getEnv("MAILCHIMP_TEMPLATE_ID", ""),
		MailchimpFrom:       getEnv("MAILCHIMP_FROM", "newsletter@fullstackbulletin.com"),
		MailchimpFromName:   getEnv("MAILCHIMP_FROM_NAME", "Fullstack Bulletin"),
		MailchimpReplyTo:    getEnv("MAILCHIMP_REPLY_TO", "newsletter@fullstackbulletin.com"),

		UnsplashAccessKey: getEnv("UNSPLASH_ACCESS_KEY", ""),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "fsb"),

		BrowserScraperURL: getEnv("BROWSER_SCRAPER_URL", ""),

		NumResults:            getEnvInt("NUM_RESULTS", 7),
		LookbackDays:          getEnvInt("LOOKBACK_DAYS", 7),
		MaxStatusesPerAccount: getEnvInt("MAX_STATUSES_PER_ACCOUNT", 200),
	}

	log.Printf("config loaded: port=%s cron=%q results=%d lookback=%dd", cfg.AppPort, cfg.CronSpec, cfg.NumResults, cfg.LookbackDays)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

// Now 返回当前时间，调用方可在测试里替换成固定时间
func Now() time.Time {
	return time.Now()
}

// ReferenceMoment 返回本期的参考时间点：当前时间向前回溯 lookbackDays 天，
// 并对齐到当天零点（边界时间点本身不计入精选范围）
func ReferenceMoment(now time.Time, lookbackDays int) time.Time {
	t := now.AddDate(0, 0, -lookbackDays)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
