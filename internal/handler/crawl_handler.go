package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mfurukawa/dellwatch/internal/cache"
	"github.com/mfurukawa/dellwatch/internal/models"
	"github.com/mfurukawa/dellwatch/internal/orchestrator"
	"github.com/mfurukawa/dellwatch/internal/utils"
)

// CrawlHandler exposes the run orchestrator: start a crawl run on remote
// compute and poll its status. The run lock guarantees a single active run.
type CrawlHandler struct {
	launcher *orchestrator.ECSLauncher
	lock     *cache.RunLock
}

// NewCrawlHandler constructs a CrawlHandler. launcher may be nil when ECS
// is not configured; crawl endpoints then report 503.
func NewCrawlHandler(launcher *orchestrator.ECSLauncher, lock *cache.RunLock) *CrawlHandler {
	return &CrawlHandler{launcher: launcher, lock: lock}
}

// StartCrawl launches a new crawl run unless one is already active.
func (h *CrawlHandler) StartCrawl(c *gin.Context) {
	if h.launcher == nil {
		utils.Error(c, 503, "NOT_CONFIGURED", "Crawl launcher is not configured")
		return
	}
	ctx := c.Request.Context()

	// Claim the lock before launching so two requests cannot both start a
	// task; the placeholder is replaced with the ARN once known.
	ok, holder, err := h.lock.Acquire(ctx, "pending")
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to check active run")
		return
	}
	if !ok {
		utils.Error(c, 409, "RUN_ACTIVE", "A crawl run is already active: "+holder)
		return
	}

	arn, err := h.launcher.StartRun(ctx)
	if err != nil {
		if relErr := h.lock.Release(ctx); relErr != nil {
			log.Warn().Err(relErr).Msg("failed to release run lock after launch failure")
		}
		log.Error().Err(err).Msg("failed to launch crawl run")
		utils.Error(c, 502, "LAUNCH_FAILED", "Failed to launch crawl run")
		return
	}
	if err := h.lock.Update(ctx, arn); err != nil {
		log.Warn().Err(err).Str("task_arn", arn).Msg("failed to record task arn on run lock")
	}

	utils.Success(c, 202, "Crawl run launched", gin.H{
		"taskArn": arn,
	})
}

// GetStatus polls one crawl run by task ARN. ARNs contain slashes, so the
// route binds a wildcard parameter. The run lock is released once the task
// reports STOPPED.
func (h *CrawlHandler) GetStatus(c *gin.Context) {
	if h.launcher == nil {
		utils.Error(c, 503, "NOT_CONFIGURED", "Crawl launcher is not configured")
		return
	}
	ctx := c.Request.Context()

	arn := strings.TrimPrefix(c.Param("arn"), "/")
	if arn == "" {
		utils.Error(c, 400, "BAD_REQUEST", "Task ARN is required")
		return
	}

	status, err := h.launcher.RunStatus(ctx, arn)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			utils.Error(c, 404, "NOT_FOUND", "Task not found")
			return
		}
		log.Error().Err(err).Str("task_arn", arn).Msg("failed to poll crawl run")
		utils.Error(c, 502, "POLL_FAILED", "Failed to poll crawl run")
		return
	}

	if status.Status == models.RunStateStopped {
		if holder, err := h.lock.ActiveRun(ctx); err == nil && holder == arn {
			if err := h.lock.Release(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to release run lock for stopped run")
			}
		}
	}

	utils.Success(c, 200, "Crawl run status retrieved", status)
}
