package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fullstackbulletin/NewsletterHub/internal/storage"
)

// jobTimeout 单次发刊任务的整体超时：流水线里有上百次外部请求，
// 给足余量但不允许无限挂起
const jobTimeout = 15 * time.Minute

// IssueCreator 由 issue.Service 实现
type IssueCreator interface {
	CreateIssue(ctx context.Context) (*storage.Issue, error)
}

// Scheduler 按 cron 表达式定期创建期刊（默认每周一次）
type Scheduler struct {
	cron    *cron.Cron
	creator IssueCreator
}

func New(spec string, creator IssueCreator) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		creator: creator,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Cron 暴露底层 cron 实例，便于挂载辅助任务
func (s *Scheduler) Cron() *cron.Cron {
	return s.cron
}

// RunOnce 对外暴露的单次执行入口，方便手动触发发刊
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start issue job...")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	iss, err := s.creator.CreateIssue(ctx)
	if err != nil {
		log.Printf("issue job error: %v", err)
		return
	}

	log.Printf("issue job done: issue #%d (campaign %s)", iss.Number, iss.CampaignID)
}
