package issue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/campaign"
	"github.com/fullstackbulletin/NewsletterHub/internal/config"
	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
	"github.com/fullstackbulletin/NewsletterHub/internal/storage"
)

// CampaignCreator 邮件战役创建（Mailchimp）
type CampaignCreator interface {
	CreateCampaign(ctx context.Context, links []pipeline.CuratedLink, s campaign.Settings) (string, error)
}

// ImageUploader 配图转存（Cloudinary），可选
type ImageUploader interface {
	UploadAll(ctx context.Context, links []pipeline.CuratedLink) ([]pipeline.CuratedLink, error)
}

// IssueStore 期刊与黑名单的持久化
type IssueStore interface {
	BlacklistedURLs(ctx context.Context, currentCampaign string) ([]string, error)
	AddToBlacklist(ctx context.Context, campaignName string, urls []string) error
	NextIssueNumber() (int, error)
	SaveIssue(issue *storage.Issue, links []pipeline.CuratedLink) error
}

// Service 编排一期期刊的完整创建流程：跑链接精选流水线、转存配图、
// 创建邮件战役、更新黑名单并落库。任一致命错误都会中止整期创建，
// 不会发出不完整的期刊。
type Service struct {
	Cfg      *config.Config
	Pipeline *pipeline.Pipeline
	Store    IssueStore
	Mail     CampaignCreator
	Images   ImageUploader // 可为 nil，表示不转存配图

	// now 可注入，方便测试固定时间
	now func() time.Time
}

func NewService(cfg *config.Config, p *pipeline.Pipeline, store IssueStore, mail CampaignCreator, images ImageUploader) *Service {
	return &Service{
		Cfg:      cfg,
		Pipeline: p,
		Store:    store,
		Mail:     mail,
		Images:   images,
		now:      config.Now,
	}
}

// CreateIssue 创建一期期刊，返回落库后的期刊记录
func (s *Service) CreateIssue(ctx context.Context) (*storage.Issue, error) {
	now := s.now()
	ref := config.ReferenceMoment(now, s.Cfg.LookbackDays)
	week, year := campaign.WeekOf(now)
	campaignName := campaign.CampaignName(now)

	number, err := s.Store.NextIssueNumber()
	if err != nil {
		return nil, err
	}
	log.Printf("issue: creating issue #%d (campaign=%s, since=%s)", number, campaignName, ref.Format(time.RFC3339))

	blacklist, err := s.Store.BlacklistedURLs(ctx, campaignName)
	if err != nil {
		return nil, err
	}

	links, err := s.Pipeline.Run(ctx, pipeline.Options{
		ReferenceMoment: ref,
		NumResults:      s.Cfg.NumResults,
		BlacklistedURLs: blacklist,
	})
	if err != nil {
		return nil, fmt.Errorf("issue: curate links: %w", err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("issue: no links curated for issue #%d", number)
	}

	if s.Images != nil {
		links, err = s.Images.UploadAll(ctx, links)
		if err != nil {
			return nil, err
		}
	}

	settings := campaign.Settings{
		ListID:       s.Cfg.MailchimpListID,
		TemplateID:   templateID(s.Cfg.MailchimpTemplateID),
		From:         s.Cfg.MailchimpFrom,
		FromName:     s.Cfg.MailchimpFromName,
		ReplyTo:      s.Cfg.MailchimpReplyTo,
		CampaignName: campaignName,
		WeekNumber:   week,
		Year:         year,
	}
	campaignID, err := s.Mail.CreateCampaign(ctx, links, settings)
	if err != nil {
		return nil, err
	}
	log.Printf("issue: campaign %s created with %d links", campaignID, len(links))

	urls := make([]string, 0, len(links))
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	if err := s.Store.AddToBlacklist(ctx, campaignName, urls); err != nil {
		return nil, err
	}

	issue := &storage.Issue{
		Number:       number,
		WeekNumber:   week,
		Year:         year,
		CampaignID:   campaignID,
		CampaignName: campaignName,
		Subject:      links[0].Title,
	}
	if err := s.Store.SaveIssue(issue, links); err != nil {
		return nil, err
	}

	log.Printf("issue: issue #%d saved", number)
	return issue, nil
}

// PreviewLinks 只跑精选流水线不发刊，供预览接口与命令行使用
func (s *Service) PreviewLinks(ctx context.Context, numResults int) ([]pipeline.CuratedLink, error) {
	now := s.now()
	if numResults <= 0 {
		numResults = s.Cfg.NumResults
	}

	blacklist, err := s.Store.BlacklistedURLs(ctx, campaign.CampaignName(now))
	if err != nil {
		return nil, err
	}

	return s.Pipeline.Run(ctx, pipeline.Options{
		ReferenceMoment: config.ReferenceMoment(now, s.Cfg.LookbackDays),
		NumResults:      numResults,
		BlacklistedURLs: blacklist,
	})
}

func templateID(s string) int {
	var id int
	_, _ = fmt.Sscanf(s, "%d", &id)
	return id
}
