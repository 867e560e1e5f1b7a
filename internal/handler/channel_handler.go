package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
	"github.com/GTDGit/lumina_api/internal/worker"
)

const recentPostsLimit = 50

// ChannelAPI is the promotional channel surface used by ChannelHandler.
type ChannelAPI interface {
	PostProduct(ctx context.Context, id int) (*models.ChannelPost, error)
	PostNext(ctx context.Context) (*models.ChannelPost, error)
	ListPosts(ctx context.Context, limit int) ([]models.ChannelPost, error)
}

// Scheduler controls periodic channel posting.
type Scheduler interface {
	Start() error
	Stop()
	Status() worker.SchedulerStatus
}

// ChannelHandler handles channel posting and scheduler control.
type ChannelHandler struct {
	channel   ChannelAPI
	scheduler Scheduler
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(channel ChannelAPI, scheduler Scheduler) *ChannelHandler {
	return &ChannelHandler{channel: channel, scheduler: scheduler}
}

// PostProduct handles POST /api/admin/channel/post/:id
func (h *ChannelHandler) PostProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	post, err := h.channel.PostProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Posted to channel", post)
}

// PostNext handles POST /api/admin/channel/post-next
func (h *ChannelHandler) PostNext(c *gin.Context) {
	post, err := h.channel.PostNext(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		utils.Success(c, http.StatusOK, "No products to post", nil)
		return
	}
	utils.Success(c, http.StatusOK, "Posted to channel", post)
}

// ListPosts handles GET /api/admin/channel/posts
func (h *ChannelHandler) ListPosts(c *gin.Context) {
	posts, err := h.channel.ListPosts(c.Request.Context(), recentPostsLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Channel posts retrieved", posts)
}

// SchedulerStatus handles GET /api/admin/channel/scheduler
func (h *ChannelHandler) SchedulerStatus(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Scheduler status", h.scheduler.Status())
}

// StartScheduler handles POST /api/admin/channel/scheduler
func (h *ChannelHandler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Scheduler started", h.scheduler.Status())
}

// StopScheduler handles DELETE /api/admin/channel/scheduler
func (h *ChannelHandler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	utils.Success(c, http.StatusOK, "Scheduler stopped", h.scheduler.Status())
}
