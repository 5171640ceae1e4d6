package issue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fullstackbulletin/NewsletterHub/internal/campaign"
	"github.com/fullstackbulletin/NewsletterHub/internal/config"
	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
	"github.com/fullstackbulletin/NewsletterHub/internal/social"
	"github.com/fullstackbulletin/NewsletterHub/internal/storage"
)

// 流水线协作方的最小假实现，只为让 Service 编排逻辑可测

type stubSource struct{ statuses []social.Status }

func (s *stubSource) RecentStatuses(_ context.Context) ([]social.Status, error) {
	return s.statuses, nil
}

type stubUnshortener struct{}

func (stubUnshortener) Resolve(_ context.Context, _ string) (string, error) { return "", nil }

type stubEngagement struct{}

func (stubEngagement) URLInfo(_ context.Context, link string) (*pipeline.URLInfo, error) {
	return &pipeline.URLInfo{
		ID:         link,
		Engagement: &pipeline.Engagement{ShareCount: 3},
	}, nil
}

type stubScraper struct{}

func (stubScraper) Scrape(_ context.Context, _ string) (*pipeline.Metadata, error) {
	return &pipeline.Metadata{
		OGTitle:       "Stub title",
		OGDescription: "stub description",
		OGImage:       "https://img.example/a.png",
	}, nil
}

type stubImages struct{}

func (stubImages) ImageURL(_ context.Context, _ string) (string, error) {
	return "https://fallback.example/x.jpg", nil
}

type fakeStore struct {
	blacklist   []string
	nextNumber  int
	blacklisted map[string][]string
	saved       *storage.Issue
	savedLinks  []pipeline.CuratedLink
}

func (f *fakeStore) BlacklistedURLs(_ context.Context, _ string) ([]string, error) {
	return f.blacklist, nil
}

func (f *fakeStore) AddToBlacklist(_ context.Context, campaignName string, urls []string) error {
	if f.blacklisted == nil {
		f.blacklisted = map[string][]string{}
	}
	f.blacklisted[campaignName] = append(f.blacklisted[campaignName], urls...)
	return nil
}

func (f *fakeStore) NextIssueNumber() (int, error) { return f.nextNumber, nil }

func (f *fakeStore) SaveIssue(issue *storage.Issue, links []pipeline.CuratedLink) error {
	f.saved = issue
	f.savedLinks = links
	return nil
}

type fakeMail struct {
	gotLinks    []pipeline.CuratedLink
	gotSettings campaign.Settings
}

func (f *fakeMail) CreateCampaign(_ context.Context, links []pipeline.CuratedLink, s campaign.Settings) (string, error) {
	f.gotLinks = links
	f.gotSettings = s
	return "camp-9", nil
}

func newTestService(store *fakeStore, mail *fakeMail, statuses []social.Status) *Service {
	cfg := &config.Config{
		NumResults:          2,
		LookbackDays:        7,
		MailchimpListID:     "list-1",
		MailchimpTemplateID: "77",
	}
	p := &pipeline.Pipeline{
		Source:      &stubSource{statuses: statuses},
		Unshortener: stubUnshortener{},
		Engagement:  stubEngagement{},
		Metadata:    stubScraper{},
		Images:      stubImages{},
	}
	svc := NewService(cfg, p, store, mail, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 3, 17, 0, 0, 0, time.UTC)
	}
	return svc
}

func recentStatus(link string) social.Status {
	return social.Status{
		CreatedAt: time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC),
		Card:      &social.Card{URL: link},
	}
}

func TestCreateIssue(t *testing.T) {
	store := &fakeStore{nextNumber: 12}
	mail := &fakeMail{}
	svc := newTestService(store, mail, []social.Status{
		recentStatus("https://a.example/article"),
	})

	issue, err := svc.CreateIssue(context.Background())
	if err != nil {
		t.Fatalf("CreateIssue error: %v", err)
	}

	if issue.Number != 12 || issue.CampaignID != "camp-9" {
		t.Fatalf("issue = %+v", issue)
	}
	if issue.CampaignName != "fullstackbulletin-2026-36" {
		t.Fatalf("CampaignName = %q", issue.CampaignName)
	}
	if issue.WeekNumber != 36 || issue.Year != 2026 {
		t.Fatalf("week/year = %d/%d", issue.WeekNumber, issue.Year)
	}
	if issue.Subject != "Stub title" {
		t.Fatalf("Subject = %q", issue.Subject)
	}

	if mail.gotSettings.ListID != "list-1" || mail.gotSettings.TemplateID != 77 {
		t.Fatalf("settings = %+v", mail.gotSettings)
	}

	// 本期用到的链接进黑名单，归属本期战役名
	urls := store.blacklisted["fullstackbulletin-2026-36"]
	if len(urls) != 1 || urls[0] != "https://a.example/article" {
		t.Fatalf("blacklisted = %v", urls)
	}

	if store.saved != issue || len(store.savedLinks) != 1 {
		t.Fatalf("issue not saved with links")
	}
}

func TestCreateIssueExcludesBlacklistedLinks(t *testing.T) {
	store := &fakeStore{
		nextNumber: 3,
		blacklist:  []string{"https://seen.example/article"},
	}
	mail := &fakeMail{}
	svc := newTestService(store, mail, []social.Status{
		recentStatus("https://seen.example/article"),
		recentStatus("https://fresh.example/article"),
	})

	if _, err := svc.CreateIssue(context.Background()); err != nil {
		t.Fatalf("CreateIssue error: %v", err)
	}
	if len(mail.gotLinks) != 1 || mail.gotLinks[0].URL != "https://fresh.example/article" {
		t.Fatalf("campaign links = %+v", mail.gotLinks)
	}
}

func TestCreateIssueFailsWithoutLinks(t *testing.T) {
	store := &fakeStore{nextNumber: 1}
	svc := newTestService(store, &fakeMail{}, nil)

	_, err := svc.CreateIssue(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no links") {
		t.Fatalf("err = %v, want no-links failure", err)
	}
	if store.saved != nil {
		t.Fatalf("nothing should be saved on failure")
	}
}

func TestPreviewLinksDoesNotPublish(t *testing.T) {
	store := &fakeStore{nextNumber: 1}
	mail := &fakeMail{}
	svc := newTestService(store, mail, []social.Status{
		recentStatus("https://a.example/article"),
	})

	links, err := svc.PreviewLinks(context.Background(), 0)
	if err != nil {
		t.Fatalf("PreviewLinks error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v", links)
	}
	if mail.gotLinks != nil || store.saved != nil || store.blacklisted != nil {
		t.Fatalf("preview must not create campaigns or touch state")
	}
}

func TestTemplateID(t *testing.T) {
	if got := templateID("123"); got != 123 {
		t.Fatalf("templateID = %d", got)
	}
	if got := templateID("not-a-number"); got != 0 {
		t.Fatalf("templateID = %d, want 0", got)
	}
}
