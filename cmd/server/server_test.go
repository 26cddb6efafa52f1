package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/workspace-chat/internal/config"
	"github.com/thereayou/workspace-chat/internal/database"
	"github.com/thereayou/workspace-chat/internal/handlers/dto"
	ws "github.com/thereayou/workspace-chat/internal/websocket"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	url string
	hub *ws.Hub
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(gormDB))

	log := zaptest.NewLogger(t)
	hub := ws.NewHub(log, ws.Options{SendQueueSize: 16})
	cfg := &config.Config{AllowedOrigins: []string{"*"}}

	ctx, cancel := context.WithCancel(context.Background())
	router := newRouter(ctx, cfg, database.NewDatabase(gormDB), hub, hub, log)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		cancel()
		hub.Stop()
		srv.Close()
		sqlDB.Close()
	})

	return &testServer{url: srv.URL, hub: hub}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, event interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(event))
}

func readReceive(t *testing.T, conn *websocket.Conn) dto.ThreadResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != ws.TypeReceiveMessage {
			continue
		}
		var thread dto.ThreadResponse
		require.NoError(t, json.Unmarshal(msg.Data, &thread))
		return thread
	}
}

func assertNothingReceived(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))

	_, data, err := conn.ReadMessage()
	var netErr net.Error
	require.ErrorAs(t, err, &netErr, "unexpected frame: %s", data)
	assert.True(t, netErr.Timeout())
}

func TestOnlyJoinedSessionsReceiveBroadcast(t *testing.T) {
	srv := startTestServer(t)
	s1 := srv.dial(t)
	s2 := srv.dial(t)

	writeEvent(t, s1, map[string]string{"type": "joinWorkspace", "workspaceId": "W1"})
	require.Eventually(t, func() bool { return len(srv.hub.MembersOf("W1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	writeEvent(t, s2, map[string]interface{}{
		"type": "sendMessage",
		"data": map[string]string{"workSpaceId": "W1", "content": "hi", "sender": "U1"},
	})

	thread := readReceive(t, s1)
	assert.Equal(t, "W1", thread.WorkspaceID)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "hi", thread.Messages[0].Content)
	assert.Equal(t, "U1", thread.Messages[0].Sender.ID)

	assertNothingReceived(t, s2)
}

func TestMalformedFramesKeepSessionAlive(t *testing.T) {
	srv := startTestServer(t)
	conn := srv.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	writeEvent(t, conn, map[string]interface{}{"type": "sendMessage", "data": map[string]string{"workSpaceId": "W1"}})
	// клиенты шлют timestamp в своём формате, сервер его не читает
	writeEvent(t, conn, map[string]interface{}{"type": "joinWorkspace", "workspaceId": "W1", "timestamp": 1700000000000})
	writeEvent(t, conn, map[string]interface{}{
		"type": "sendMessage",
		"data": map[string]string{"workSpaceId": "W1", "content": "still here", "sender": "U1"},
	})

	thread := readReceive(t, conn)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "still here", thread.Messages[0].Content)
}

func TestDisconnectLeavesAllRooms(t *testing.T) {
	srv := startTestServer(t)
	conn := srv.dial(t)

	writeEvent(t, conn, map[string]string{"type": "joinWorkspace", "workspaceId": "W1"})
	writeEvent(t, conn, map[string]string{"type": "joinWorkspace", "workspaceId": "W2"})
	require.Eventually(t, func() bool {
		return len(srv.hub.MembersOf("W1")) == 1 && len(srv.hub.MembersOf("W2")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return len(srv.hub.MembersOf("W1")) == 0 && len(srv.hub.MembersOf("W2")) == 0 && srv.hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentPostsReachMembersInOrder(t *testing.T) {
	srv := startTestServer(t)
	member := srv.dial(t)

	writeEvent(t, member, map[string]string{"type": "joinWorkspace", "workspaceId": "W1"})
	require.Eventually(t, func() bool { return len(srv.hub.MembersOf("W1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	const posts = 5
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"content":"msg %d","sender":"U1"}`, i)
			resp, err := http.Post(srv.url+"/api/chat/W1", "application/json", strings.NewReader(body))
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusCreated, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()

	// каждый кадр содержит весь тред на момент записи, последний содержит всё
	for i := 1; i <= posts; i++ {
		thread := readReceive(t, member)
		assert.Len(t, thread.Messages, i)
	}
}

func TestChatRoutesAreWired(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.url + "/api/chat/W404")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.url + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
