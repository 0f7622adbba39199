package api

import (
	"strconv"

	"chatbot/database"
	"chatbot/models"

	"github.com/gin-gonic/gin"
)

// 消息列表分页：默认与上限都取 10，与上下文窗口大小保持一致
const maxMessagePageSize = 10

// MessageHandler 消息处理器
type MessageHandler struct{}

// NewMessageHandler 创建消息处理器
func NewMessageHandler() *MessageHandler {
	return &MessageHandler{}
}

// CreateMessageRequest 创建消息请求
type CreateMessageRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

// List 列出会话内的消息
// @Summary 消息列表
// @Description 按创建时间倒序分页返回会话内的消息，每页最多 10 条
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param page query int false "页码，默认1"
// @Param page_size query int false "每页条数，默认10，最大10"
// @Success 200 {object} Response{data=PageResponse} "获取成功"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id}/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}

	page := 1
	pageSize := maxMessagePageSize
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
	if pageSize > maxMessagePageSize {
		pageSize = maxMessagePageSize
	}

	query := database.DB.Model(&models.Message{}).Where("conversation_id = ?", conv.ID)
	var total int64
	query.Count(&total)

	var messages []models.Message
	offset := (page - 1) * pageSize
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&messages).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询消息失败"))
		return
	}

	Success(c, PageResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		List:     messages,
	})
}

// Create 在会话内创建一条用户消息
// @Summary 创建消息
// @Tags 消息
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param request body CreateMessageRequest true "消息内容"
// @Success 200 {object} Response{data=models.Message} "创建成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id}/messages [post]
func (h *MessageHandler) Create(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	message := models.Message{
		ConversationID: conv.ID,
		Content:        req.Content,
		IsFromUser:     true,
	}
	if err := database.DB.Create(&message).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消息失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", message)
}
