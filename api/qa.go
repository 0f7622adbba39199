package api

import (
	"strconv"

	"chatbot/database"
	"chatbot/middleware"
	"chatbot/models"

	"github.com/gin-gonic/gin"
)

// QAHandler 提问与回答记录处理器
type QAHandler struct{}

// NewQAHandler 创建提问与回答记录处理器
func NewQAHandler() *QAHandler {
	return &QAHandler{}
}

// parsePage 解析分页参数，默认每页 20 条，上限 100
func parsePage(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ListQuestions 列出当前用户的提问记录
// @Summary 提问记录列表
// @Tags 问答
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码，默认1"
// @Param page_size query int false "每页条数，默认20，最大100"
// @Success 200 {object} Response{data=PageResponse} "获取成功"
// @Router /api/v1/questions [get]
func (h *QAHandler) ListQuestions(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, pageSize := parsePage(c)

	query := database.DB.Model(&models.UserQuestion{}).Where("user_id = ?", userID)
	var total int64
	query.Count(&total)

	var questions []models.UserQuestion
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&questions).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询提问记录失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		List:     questions,
	})
}

// ListResponses 列出当前用户的回答记录
// @Summary 回答记录列表
// @Tags 问答
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码，默认1"
// @Param page_size query int false "每页条数，默认20，最大100"
// @Success 200 {object} Response{data=PageResponse} "获取成功"
// @Router /api/v1/responses [get]
func (h *QAHandler) ListResponses(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	page, pageSize := parsePage(c)

	query := database.DB.Model(&models.ChatbotResponse{}).Where("user_id = ?", userID)
	var total int64
	query.Count(&total)

	var responses []models.ChatbotResponse
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&responses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询回答记录失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		List:     responses,
	})
}
