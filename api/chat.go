package api

import (
	"errors"
	"net/http"

	"chatbot/config"
	"chatbot/middleware"
	"chatbot/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler 问答处理器
type ChatHandler struct {
	svc *service.ChatService
}

// NewChatHandler 创建问答处理器，按配置组装检索与生成客户端
func NewChatHandler(cfg *config.Config) *ChatHandler {
	embedder := service.NewOpenAIEmbedder(&cfg.OpenAI)
	retriever := service.NewPineconeRetriever(&cfg.Pinecone, embedder)
	generator := service.NewOpenAIGenerator(&cfg.OpenAI)
	return &ChatHandler{
		svc: service.NewChatService(cfg, retriever, generator),
	}
}

// NewChatHandlerWithService 使用外部组装好的编排器创建处理器
func NewChatHandlerWithService(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Ask 提问并获取检索增强的回答
// @Summary 提问
// @Description 针对知识库提问。依次执行：写入提问记录 -> 构建上下文 -> 向量检索 -> 生成回答 -> 写入回答记录。conversation_id 为空时复用/创建当前用户的进行中会话。
// @Tags 问答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AskRequest true "问答请求"
// @Success 200 {object} map[string]interface{} "result/sources/conversation_id/chat_history"
// @Failure 400 {object} map[string]interface{} "未提供问题内容"
// @Failure 404 {object} map[string]interface{} "会话不存在"
// @Failure 502 {object} map[string]interface{} "检索或生成失败"
// @Router /api/v1/ask [post]
func (h *ChatHandler) Ask(c *gin.Context) {
	var req service.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	userID := middleware.GetCurrentUserID(c)
	result, err := h.svc.Ask(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":          result.Answer.Text,
		"sources":         result.Answer.Sources,
		"conversation_id": result.ConversationID,
		"chat_history":    result.ChatHistory,
	})
}

// writeError 按阶段把编排器错误映射为 HTTP 响应
// 每类失败短路返回，内部细节经 SafeErrorMessage 过滤
func (h *ChatHandler) writeError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"stage": "validation",
		})
		return
	}

	if errors.Is(err, service.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
		return
	}

	var retrievalErr *service.RetrievalError
	if errors.As(err, &retrievalErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": SafeErrorMessage(retrievalErr, "检索服务暂不可用，请稍后重试"),
			"stage": "retrieval",
		})
		return
	}

	var generationErr *service.GenerationError
	if errors.As(err, &generationErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": SafeErrorMessage(generationErr, "回答生成失败，请稍后重试"),
			"stage": "generation",
		})
		return
	}

	var persistenceErr *service.PersistenceError
	if errors.As(err, &persistenceErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": SafeErrorMessage(persistenceErr, "服务内部错误"),
			"stage": "persistence",
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": SafeErrorMessage(err, "服务内部错误"),
	})
}
