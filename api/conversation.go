package api

import (
	"chatbot/database"
	"chatbot/middleware"
	"chatbot/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ConversationHandler 会话处理器
// 所有操作均以当前用户为作用域，跨用户访问一律返回 404
type ConversationHandler struct{}

// NewConversationHandler 创建会话处理器
func NewConversationHandler() *ConversationHandler {
	return &ConversationHandler{}
}

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	Title  string  `json:"title"`
	Prompt *string `json:"prompt"`
}

// UpdateConversationRequest 更新会话请求
type UpdateConversationRequest struct {
	Title  *string `json:"title"`
	Prompt *string `json:"prompt"`
	Status *string `json:"status"` // active/archived/ended
}

// findOwned 按 (id, user_id) 取会话，不存在或不属于当前用户都视为不存在
func findOwned(c *gin.Context, id string) (*models.Conversation, bool) {
	userID := middleware.GetCurrentUserID(c)
	var conv models.Conversation
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
		NotFound(c, "会话不存在")
		return nil, false
	}
	return &conv, true
}

// List 列出当前用户的会话
// @Summary 会话列表
// @Description 列出当前用户的所有会话，按创建时间升序
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Conversation} "获取成功"
// @Router /api/v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var conversations []models.Conversation
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&conversations).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询会话失败"))
		return
	}

	Success(c, conversations)
}

// Create 创建会话
// @Summary 创建会话
// @Tags 会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateConversationRequest true "会话信息"
// @Success 200 {object} Response{data=models.Conversation} "创建成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = models.DefaultConversationTitle
	}
	conv := models.Conversation{
		UserID: userID,
		Title:  title,
		Status: models.ConversationStatusActive,
		Prompt: req.Prompt,
	}
	if err := database.DB.Create(&conv).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建会话失败"))
		return
	}

	SuccessWithMessage(c, "创建成功", conv)
}

// Get 获取会话详情
// @Summary 会话详情
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} Response{data=models.Conversation} "获取成功"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}
	Success(c, conv)
}

// Update 更新会话（标题/提示词/状态）
// @Summary 更新会话
// @Tags 会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Param request body UpdateConversationRequest true "更新内容"
// @Success 200 {object} Response{data=models.Conversation} "更新成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id} [put]
func (h *ConversationHandler) Update(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Prompt != nil {
		updates["prompt"] = *req.Prompt
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ConversationStatusActive, models.ConversationStatusArchived, models.ConversationStatusEnded:
			updates["status"] = *req.Status
		default:
			BadRequest(c, "无效的会话状态")
			return
		}
	}
	if len(updates) == 0 {
		BadRequest(c, "没有需要更新的字段")
		return
	}

	if err := database.DB.Model(conv).Updates(updates).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新会话失败"))
		return
	}

	SuccessWithMessage(c, "更新成功", conv)
}

// Delete 删除会话，级联删除其消息、提问与回答记录
// @Summary 删除会话
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.UserQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.ChatbotResponse{}).Error; err != nil {
			return err
		}
		return tx.Delete(conv).Error
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "删除会话失败"))
		return
	}

	SuccessWithMessage(c, "会话已删除", nil)
}

// ToggleFavourite 收藏/取消收藏
// 单条 UPDATE 内取反，两个并发切换不会互相覆盖
// @Summary 切换收藏状态
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} Response{data=models.Conversation} "切换成功"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id}/favourite [patch]
func (h *ConversationHandler) ToggleFavourite(c *gin.Context) {
	h.toggleFlag(c, "favourite", "已加入收藏", "已取消收藏")
}

// ToggleArchive 归档/取消归档
// @Summary 切换归档状态
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} Response{data=models.Conversation} "切换成功"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id}/archive [patch]
func (h *ConversationHandler) ToggleArchive(c *gin.Context) {
	h.toggleFlag(c, "archive", "已归档", "已取消归档")
}

// toggleFlag 原子地翻转布尔列并返回新状态
func (h *ConversationHandler) toggleFlag(c *gin.Context, column, onMessage, offMessage string) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")

	result := database.DB.Model(&models.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update(column, gorm.Expr("NOT "+column))
	if result.Error != nil {
		InternalError(c, SafeErrorMessage(result.Error, "操作失败"))
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "会话不存在")
		return
	}

	var conv models.Conversation
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询会话失败"))
		return
	}

	message := offMessage
	switch column {
	case "favourite":
		if conv.Favourite {
			message = onMessage
		}
	case "archive":
		if conv.Archive {
			message = onMessage
		}
	}
	SuccessWithMessage(c, message, conv)
}

// Title 获取会话标题，占位标题在首次读取时从消息内容生成
// @Summary 获取会话标题
// @Description 标题为占位值且会话已有消息时，取消息内容前 30 个字符作为标题并保存
// @Tags 会话
// @Produce json
// @Security BearerAuth
// @Param id path string true "会话ID"
// @Success 200 {object} Response{data=models.Conversation} "获取成功"
// @Success 204 {object} nil "会话中还没有消息"
// @Failure 404 {object} Response "会话不存在"
// @Router /api/v1/conversations/{id}/title [get]
func (h *ConversationHandler) Title(c *gin.Context) {
	conv, ok := findOwned(c, c.Param("id"))
	if !ok {
		return
	}

	if conv.Title != models.DefaultConversationTitle {
		Success(c, conv)
		return
	}

	var messages []models.Message
	if err := database.DB.
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询消息失败"))
		return
	}
	if len(messages) == 0 {
		c.Status(204)
		return
	}

	title := ""
	for _, msg := range messages {
		title += msg.Content
		if len([]rune(title)) >= 30 {
			break
		}
	}
	runes := []rune(title)
	if len(runes) > 30 {
		title = string(runes[:30])
	}

	if err := database.DB.Model(conv).Update("title", title).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新标题失败"))
		return
	}
	Success(c, conv)
}
