package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
)

// Issue 一期已发布（或已创建战役）的期刊
type Issue struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Number     int    `gorm:"uniqueIndex" json:"number"`
	WeekNumber int    `json:"weekNumber"`
	Year       int    `gorm:"index" json:"year"`
	CampaignID string `gorm:"size:64" json:"campaignId"`
	// CampaignName 战役名，黑名单按它归属
	CampaignName string `gorm:"size:128;index" json:"campaignName"`
	Subject      string `gorm:"size:512" json:"subject"`

	Links []IssueLink `gorm:"constraint:OnDelete:CASCADE" json:"links"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IssueLink 期刊里的一条精选链接，按 Position 保持排名顺序
type IssueLink struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	IssueID  uint   `gorm:"index" json:"issueId"`
	Position int    `json:"position"`
	Title    string `gorm:"size:512" json:"title"`
	URL      string `gorm:"size:1024;index" json:"url"`
	// 长度控制在约 600 个字符，入库前按 rune 截断
	Description string            `gorm:"size:600" json:"description"`
	Image       string            `gorm:"size:1024" json:"image"`
	Score       int               `gorm:"index" json:"score"`
	ExtraData   datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Issue{}, &IssueLink{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// blacklistKey Redis hash：field 是链接，value 是收录它的战役名
const blacklistKey = "newsletter:blacklist"

// BlacklistedURLs 返回往期已用过的全部链接。当前战役自己收录的链接
// 不计入，这样同一期重跑不会把自己的链接当成旧闻过滤掉。
func (s *Store) BlacklistedURLs(ctx context.Context, currentCampaign string) ([]string, error) {
	entries, err := s.Redis.HGetAll(ctx, blacklistKey).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: load blacklist: %w", err)
	}

	urls := make([]string, 0, len(entries))
	for u, campaign := range entries {
		if currentCampaign != "" && campaign == currentCampaign {
			continue
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// AddToBlacklist 把本期选中的链接记入黑名单，归属到给定战役名
func (s *Store) AddToBlacklist(ctx context.Context, campaign string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	pairs := make([]any, 0, len(urls)*2)
	for _, u := range urls {
		pairs = append(pairs, u, campaign)
	}
	if err := s.Redis.HSet(ctx, blacklistKey, pairs...).Err(); err != nil {
		return fmt.Errorf("storage: add to blacklist: %w", err)
	}
	return nil
}

// NextIssueNumber 返回下一期的期号（历史最大期号 + 1，从 1 开始）
func (s *Store) NextIssueNumber() (int, error) {
	var current int
	err := s.DB.Model(&Issue{}).Select("COALESCE(MAX(number), 0)").Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("storage: next issue number: %w", err)
	}
	return current + 1, nil
}

// SaveIssue 保存一期期刊及其精选链接。期号作为幂等键，同一期
// 重复保存时更新战役信息而不是再插一条。
func (s *Store) SaveIssue(issue *Issue, links []pipeline.CuratedLink) error {
	issue.Links = make([]IssueLink, 0, len(links))
	for i, l := range links {
		issue.Links = append(issue.Links, IssueLink{
			Position:    i + 1,
			Title:       toValidUTF8(l.Title),
			URL:         l.URL,
			Description: truncateRunesDB(toValidUTF8(l.Description), 600),
			Image:       l.Image,
			Score:       l.Score,
			ExtraData: datatypes.JSONMap{
				"score": l.Score,
			},
		})
	}

	existing := &Issue{}
	err := s.DB.Where("number = ?", issue.Number).First(existing).Error
	if err == nil {
		issue.ID = existing.ID
		return s.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(issue).Error
	}

	if err := s.DB.Create(issue).Error; err != nil {
		return fmt.Errorf("storage: save issue %d: %w", issue.Number, err)
	}
	return nil
}

// ListIssues 按期号倒序返回期刊列表（不含链接），用 Redis 做短 TTL 缓存
func (s *Store) ListIssues(limit int) ([]Issue, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("newsletter:issues:%d", limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Issue
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Issue
	if err := s.DB.Order("number DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	// 回写缓存（5 分钟）
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// GetIssue 返回指定期号的期刊，链接按排名顺序排好
func (s *Store) GetIssue(number int) (*Issue, error) {
	issue := &Issue{}
	err := s.DB.Preload("Links", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("number = ?", number).First(issue).Error
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度。
// 外部站点偶尔返回异常长的标题或描述，入库前统一截断。
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
