package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockRequest 记录收到的补全请求
type MockRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	N           int     `json:"n"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// System 返回系统消息内容
func (r MockRequest) System() string {
	return r.content("system")
}

// User 返回用户消息内容
func (r MockRequest) User() string {
	return r.content("user")
}

func (r MockRequest) content(role string) string {
	for _, msg := range r.Messages {
		if msg.Role == role {
			return msg.Content
		}
	}
	return ""
}

// Responder 根据用户消息生成响应，status 非 200 时返回错误响应
type Responder func(user string) (content string, status int)

// MockOpenAIServer 是一个模拟的OpenAI API服务器
type MockOpenAIServer struct {
	Server    *httptest.Server
	URL       string
	Models    []string
	responder Responder
	delay     time.Duration
	requests  []MockRequest
	mu        sync.Mutex
}

// NewMockOpenAIServer 创建一个新的模拟OpenAI服务器
// 默认原样返回用户消息
func NewMockOpenAIServer(t *testing.T) *MockOpenAIServer {
	mock := &MockOpenAIServer{
		Models: []string{"gpt-3.5-turbo", "gpt-4o"},
		responder: func(user string) (string, int) {
			return user, http.StatusOK
		},
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	mock.URL = mock.Server.URL + "/v1"

	// 添加清理函数
	t.Cleanup(func() {
		mock.Server.Close()
	})

	return mock
}

func (m *MockOpenAIServer) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		m.handleChat(w, r)
	case strings.HasSuffix(r.URL.Path, "/models"):
		m.handleModels(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (m *MockOpenAIServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req MockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无法解析请求体")
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	responder := m.responder
	delay := m.delay
	m.mu.Unlock()

	// 模拟延迟
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	content, status := responder(req.User())
	if status != http.StatusOK {
		writeError(w, status, content)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
				"index":         0,
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     100,
			"completion_tokens": 50,
			"total_tokens":      150,
		},
	})
}

func (m *MockOpenAIServer) handleModels(w http.ResponseWriter) {
	m.mu.Lock()
	models := append([]string(nil), m.Models...)
	m.mu.Unlock()

	data := make([]map[string]interface{}, 0, len(models))
	for _, id := range models {
		data = append(data, map[string]interface{}{
			"id":       id,
			"object":   "model",
			"created":  0,
			"owned_by": "mock",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "list",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "mock_error",
		},
	})
}

// SetResponder 设置响应函数
func (m *MockOpenAIServer) SetResponder(responder Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = responder
}

// SetDefaultResponse 所有请求返回同一段文本
func (m *MockOpenAIServer) SetDefaultResponse(response string) {
	m.SetResponder(func(string) (string, int) {
		return response, http.StatusOK
	})
}

// SetStatus 所有请求返回指定的错误状态码
func (m *MockOpenAIServer) SetStatus(status int) {
	m.SetResponder(func(string) (string, int) {
		return http.StatusText(status), status
	})
}

// SetDelay 设置响应延迟
func (m *MockOpenAIServer) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// Requests 返回已收到的补全请求
func (m *MockOpenAIServer) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}
