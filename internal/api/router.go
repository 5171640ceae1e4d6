package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fullstackbulletin/NewsletterHub/internal/pipeline"
	"github.com/fullstackbulletin/NewsletterHub/internal/storage"
)

// IssueService 期刊创建与链接预览，由 issue.Service 实现
type IssueService interface {
	CreateIssue(ctx context.Context) (*storage.Issue, error)
	PreviewLinks(ctx context.Context, numResults int) ([]pipeline.CuratedLink, error)
}

type Server struct {
	store  *storage.Store
	issues IssueService
}

func NewServer(store *storage.Store, issues IssueService) *Server {
	return &Server{store: store, issues: issues}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/issues", s.listIssues)
		v1.GET("/issues/:number", s.getIssue)
		v1.POST("/issues", s.createIssue)
		v1.GET("/links/preview", s.previewLinks)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listIssues(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	items, err := s.store.ListIssues(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) getIssue(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid issue number",
		})
		return
	}

	iss, err := s.store.GetIssue(number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "not_found",
				"message": "issue not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    iss,
	})
}

// createIssue 手动触发一期发刊，同步执行（请求方需要容忍分钟级耗时）
func (s *Server) createIssue(c *gin.Context) {
	iss, err := s.issues.CreateIssue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "issue_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    iss,
	})
}

// previewLinks 只跑精选流水线不发刊，返回候选链接列表
func (s *Server) previewLinks(c *gin.Context) {
	nStr := c.DefaultQuery("n", "0")
	n, err := strconv.Atoi(nStr)
	if err != nil || n < 0 {
		n = 0
	}

	links, err := s.issues.PreviewLinks(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "preview_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    links,
	})
}
