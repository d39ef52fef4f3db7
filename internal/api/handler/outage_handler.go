package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/internal/service"
	"github.com/d60-Lab/power-monitor/pkg/response"
)

type Handler struct {
	outageRepo repository.OutageRepository
	notifRepo  repository.NotificationRepository
	poller     *service.Poller
}

func New(outageRepo repository.OutageRepository, notifRepo repository.NotificationRepository, poller *service.Poller) *Handler {
	return &Handler{outageRepo: outageRepo, notifRepo: notifRepo, poller: poller}
}

// Health 健康检查
// @Summary 健康检查
// @Tags 运维
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ListOutages 查询停电事件
// @Summary 查询停电事件（按数据源/状态过滤）
// @Tags 停电事件
// @Param provider query string false "数据源"
// @Param status query string false "状态" Enums(reported, ongoing, resolved)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/outages [get]
func (h *Handler) ListOutages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	outages, total, err := h.outageRepo.List(c.Request.Context(),
		c.Query("provider"), c.Query("status"), (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "total": total, "list": outages})
}

// GetOutage 查询单个停电事件（含受影响邮编）
// @Summary 查询单个停电事件
// @Tags 停电事件
// @Param id path string true "事件ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/outages/{id} [get]
func (h *Handler) GetOutage(c *gin.Context) {
	o, err := h.outageRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, "outage not found")
		return
	}
	response.Success(c, o)
}

// ListNotifications 查询通知台账
// @Summary 查询通知台账
// @Tags 通知
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	recs, total, err := h.notifRepo.List(c.Request.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "total": total, "list": recs})
}

// TriggerCycle 手动触发一个轮询周期（JWT 保护）
// @Summary 手动触发轮询周期
// @Tags 运维
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.CycleStats}
// @Failure 500 {object} response.Response
// @Router /api/v1/cycles [post]
func (h *Handler) TriggerCycle(c *gin.Context) {
	stats, err := h.poller.RunCycle(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, stats)
}

// TriggerRetrySweep 手动触发失败补偿扫描（JWT 保护）
// @Summary 重发可重试的失败通知
// @Tags 运维
// @Security BearerAuth
// @Param limit query int false "单次上限" default(100)
// @Success 200 {object} response.Response
// @Router /api/v1/retries [post]
func (h *Handler) TriggerRetrySweep(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	sent, err := h.poller.RunRetrySweep(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"resent": sent})
}
