package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/thereayou/workspace-chat/internal/database"
	"github.com/thereayou/workspace-chat/internal/handlers/dto"
	"github.com/thereayou/workspace-chat/internal/models"
	"github.com/thereayou/workspace-chat/internal/relay"
	ws "github.com/thereayou/workspace-chat/internal/websocket"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ChatHandlerTestSuite struct {
	suite.Suite

	db     *database.Database
	hub    *ws.Hub
	router *gin.Engine
	alice  *models.User
}

func (s *ChatHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	s.Require().NoError(err)
	sqlDB, err := gormDB.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { sqlDB.Close() })
	s.Require().NoError(database.Migrate(gormDB))

	log := zaptest.NewLogger(s.T())
	s.db = database.NewDatabase(gormDB)
	s.hub = ws.NewHub(log, ws.Options{SendQueueSize: 16})

	s.alice = &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "secret"}
	s.Require().NoError(s.db.SaveUser(context.Background(), s.alice))

	engine := relay.NewEngine(s.db, s.db, s.hub, relay.Policy{}, log)
	chatH := NewChatHandler(engine, s.db, log)
	healthH := NewHealthHandler(s.db, s.hub)

	s.router = gin.New()
	s.router.GET("/health", healthH.Health)
	chat := s.router.Group("/api/chat")
	chat.DELETE("/message/:messageId", chatH.DeleteMessage)
	chat.GET("/:workspaceId", chatH.GetThread)
	chat.POST("/:workspaceId", chatH.PostMessage)
	chat.DELETE("/:workspaceId", chatH.ClearThread)
}

func (s *ChatHandlerTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var envelope map[string]json.RawMessage
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func (s *ChatHandlerTestSuite) post(workspaceID, content string) dto.ThreadResponse {
	w, body := s.do(http.MethodPost, "/api/chat/"+workspaceID, dto.PostMessageRequest{
		Content: content,
		Sender:  s.alice.ID.String(),
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var thread dto.ThreadResponse
	s.Require().NoError(json.Unmarshal(body["data"], &thread))
	return thread
}

func (s *ChatHandlerTestSuite) TestGetMissingThreadIs404() {
	w, body := s.do(http.MethodGet, "/api/chat/W404", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.JSONEq(`"messages not found"`, string(body["error"]))
}

func (s *ChatHandlerTestSuite) TestPostThenGetRoundTrip() {
	listener := ws.NewClient(s.hub, nil)
	s.hub.Register(listener)
	s.Require().NoError(s.hub.JoinRoom(listener, "W1"))

	sent := s.post("W1", "hello")
	s.post("W1", "again")

	w, body := s.do(http.MethodGet, "/api/chat/W1", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var thread dto.ThreadResponse
	s.Require().NoError(json.Unmarshal(body["data"], &thread))
	s.Equal("W1", thread.WorkspaceID)
	s.Require().Len(thread.Messages, 2)
	s.Equal("hello", thread.Messages[0].Content)
	s.Equal("again", thread.Messages[1].Content)
	s.True(sent.Messages[0].Timestamp.Equal(thread.Messages[0].Timestamp))
	s.Equal("alice", thread.Messages[0].Sender.Username)
	s.NotContains(w.Body.String(), "alice@example.com")
	s.NotContains(w.Body.String(), "secret")

	// HTTP отправка тоже рассылается в комнату
	s.Len(listener.Send, 2)
}

func (s *ChatHandlerTestSuite) TestPostValidation() {
	w, _ := s.do(http.MethodPost, "/api/chat/W1", map[string]string{"content": "hi"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/chat/W1", map[string]string{"content": "hi", "sender": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ChatHandlerTestSuite) TestClearThread() {
	s.post("W1", "hello")

	w, body := s.do(http.MethodDelete, "/api/chat/W1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"deleted":1}`, string(body["data"]))

	w, _ = s.do(http.MethodGet, "/api/chat/W1", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, body = s.do(http.MethodDelete, "/api/chat/W1", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"deleted":0}`, string(body["data"]))
}

func (s *ChatHandlerTestSuite) TestDeleteMessage() {
	thread := s.post("W1", "first")
	s.post("W1", "second")

	w, _ := s.do(http.MethodDelete, "/api/chat/message/"+thread.Messages[0].ID.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/chat/message/"+thread.Messages[0].ID.String(), nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/chat/message/not-a-uuid", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, body := s.do(http.MethodGet, "/api/chat/W1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got dto.ThreadResponse
	s.Require().NoError(json.Unmarshal(body["data"], &got))
	s.Require().Len(got.Messages, 1)
	s.Equal("second", got.Messages[0].Content)
}

func (s *ChatHandlerTestSuite) TestHealth() {
	w, body := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`"ok"`, string(body["status"]))
}

func TestChatHandler(t *testing.T) {
	suite.Run(t, new(ChatHandlerTestSuite))
}
