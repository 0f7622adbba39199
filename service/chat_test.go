package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatbot/config"
	"chatbot/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func chatTestConfig() *config.Config {
	return &config.Config{
		OpenAI:   config.OpenAIConfig{TimeoutSeconds: 5},
		Pinecone: config.PineconeConfig{TimeoutSeconds: 5},
		Chat:     config.ChatConfig{ContextWindow: 10, SystemPrompt: "你是知识库助手"},
	}
}

type fixedRetriever struct {
	passages []Passage
	err      error
}

func (f *fixedRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

// captureGenerator 记录收到的生成请求，便于断言提示词与历史窗口
type captureGenerator struct {
	systemPrompt string
	history      []ChatTurn
	query        string
	answer       *Answer
	err          error
}

func (g *captureGenerator) Generate(ctx context.Context, systemPrompt string, history []ChatTurn, passages []Passage, query string) (*Answer, error) {
	g.systemPrompt = systemPrompt
	g.history = history
	g.query = query
	if g.err != nil {
		return nil, g.err
	}
	return g.answer, nil
}

func conversationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "status", "favourite", "archive", "prompt", "created_at", "updated_at", "deleted_at"})
}

func messageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "conversation_id", "content", "is_from_user", "in_reply_to_id", "created_at"})
}

func TestChatService_Ask_FindOrCreateConversation(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 未指定会话：事务内带行锁查找进行中会话，没有则创建
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `conversations` .*FOR UPDATE").
		WithArgs(uint(1), "active", 1).
		WillReturnRows(conversationRows())
	mock.ExpectExec("INSERT INTO `conversations`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 提问记录与用户消息
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_questions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// 新会话上下文为空
	mock.ExpectQuery("SELECT .* FROM `messages`").
		WillReturnRows(messageRows())

	// 回答记录与助手消息
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chatbot_responses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	generator := &captureGenerator{answer: &Answer{Text: "回答"}}
	svc := NewChatService(chatTestConfig(), &fixedRetriever{}, generator)

	result, err := svc.Ask(context.Background(), 1, &AskRequest{Query: "第一个问题"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "回答", result.Answer.Text)
	assert.Empty(t, generator.history)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatService_Ask_ReusesActiveConversation(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM `conversations` .*FOR UPDATE").
		WithArgs(uint(1), "active", 1).
		WillReturnRows(conversationRows().
			AddRow("conv-active", 1, "进行中", "active", false, false, nil, now, now, nil))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_questions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT .* FROM `messages`").
		WillReturnRows(messageRows())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chatbot_responses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	generator := &captureGenerator{answer: &Answer{Text: "回答"}}
	svc := NewChatService(chatTestConfig(), &fixedRetriever{}, generator)

	result, err := svc.Ask(context.Background(), 1, &AskRequest{Query: "继续提问"})
	require.NoError(t, err)
	assert.Equal(t, "conv-active", result.ConversationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatService_Ask_PersistenceFailure(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `conversations`").
		WithArgs("conv-1", uint(1), 1).
		WillReturnRows(conversationRows().
			AddRow("conv-1", 1, "测试会话", "active", false, false, nil, now, now, nil))

	// 提问写入失败，整个事务回滚
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_questions`").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	svc := NewChatService(chatTestConfig(), &fixedRetriever{}, &captureGenerator{})

	_, err := svc.Ask(context.Background(), 1, &AskRequest{Query: "你好", ConversationID: "conv-1"})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatService_Ask_ConversationPromptOverride(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	prompt := "你是售后客服"
	mock.ExpectQuery("SELECT .* FROM `conversations`").
		WithArgs("conv-1", uint(1), 1).
		WillReturnRows(conversationRows().
			AddRow("conv-1", 1, "测试会话", "active", false, false, &prompt, now, now, nil))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_questions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT .* FROM `messages`").
		WillReturnRows(messageRows())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chatbot_responses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	generator := &captureGenerator{answer: &Answer{Text: "回答"}}
	svc := NewChatService(chatTestConfig(), &fixedRetriever{}, generator)

	_, err := svc.Ask(context.Background(), 1, &AskRequest{Query: "发票怎么开？", ConversationID: "conv-1"})
	require.NoError(t, err)

	// 会话级提示词覆盖全局默认
	assert.Equal(t, "你是售后客服", generator.systemPrompt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChatService_Ask_WindowPassedToGenerator(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `conversations`").
		WithArgs("conv-1", uint(1), 1).
		WillReturnRows(conversationRows().
			AddRow("conv-1", 1, "测试会话", "active", false, false, nil, now, now, nil))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `user_questions`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	// 数据库按时间倒序返回最近的历史消息
	mock.ExpectQuery("SELECT .* FROM `messages`").
		WillReturnRows(messageRows().
			AddRow(2, "conv-1", "早上好，有什么可以帮你？", false, 1, now.Add(-time.Minute)).
			AddRow(1, "conv-1", "早上好", true, nil, now.Add(-2*time.Minute)))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chatbot_responses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `messages`").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	generator := &captureGenerator{answer: &Answer{Text: "回答"}}
	svc := NewChatService(chatTestConfig(), &fixedRetriever{}, generator)

	_, err := svc.Ask(context.Background(), 1, &AskRequest{Query: "退货政策是什么？", ConversationID: "conv-1"})
	require.NoError(t, err)

	// 历史窗口按时间升序，角色映射正确，当前问题单独传入
	require.Len(t, generator.history, 2)
	assert.Equal(t, ChatTurn{Role: RoleUser, Content: "早上好"}, generator.history[0])
	assert.Equal(t, ChatTurn{Role: RoleAssistant, Content: "早上好，有什么可以帮你？"}, generator.history[1])
	assert.Equal(t, "退货政策是什么？", generator.query)
	require.NoError(t, mock.ExpectationsWereMet())
}
