// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/utils"
)

// ReplyFunc produces the content chunks streamed back for a message.
type ReplyFunc func(message string) []string

// EchoReply answers "echo: <message>" in two chunks.
func EchoReply(message string) []string {
	return []string{"echo: ", message}
}

// ChatServer is an in-memory chat backend speaking the same HTTP protocol as
// the real service. Every route requires "Authorization: Bearer <token>".
type ChatServer struct {
	token string

	mu       sync.Mutex
	sessions map[string]*chatapi.SessionDetail
	reply    ReplyFunc
	frames   func(sessionID, message string) []string
	requests []chatapi.ChatRequest
	now      func() time.Time

	server *httptest.Server
}

// NewChatServer starts a fake backend accepting token.
func NewChatServer(token string) *ChatServer {
	s := &ChatServer{
		token:    token,
		sessions: make(map[string]*chatapi.SessionDetail),
		reply:    EchoReply,
		now:      time.Now,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(s.requireToken)
	app.Get("/sessions", s.handleListSessions)
	app.Get("/sessions/:id", s.handleGetSession)
	app.Delete("/sessions/:id", s.handleDeleteSession)
	app.Post("/chat", s.handleChat)

	s.server = httptest.NewServer(adaptor.FiberApp(app))
	return s
}

// URL is the base URL of the backend.
func (s *ChatServer) URL() string {
	return s.server.URL
}

// Close shuts the backend down.
func (s *ChatServer) Close() {
	s.server.Close()
}

// AddSession seeds a stored session.
func (s *ChatServer) AddSession(id, title string, msgs ...chatapi.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Format(time.RFC3339Nano)
	s.sessions[id] = &chatapi.SessionDetail{
		Session:  chatapi.Session{SessionID: id, Title: title, CreatedAt: ts, UpdatedAt: ts},
		Messages: append([]chatapi.Message(nil), msgs...),
	}
}

// SetReply replaces the reply generator.
func (s *ChatServer) SetReply(fn ReplyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// SetFrames makes /chat answer with the given raw body lines instead of a
// generated reply. Nothing is stored.
func (s *ChatServer) SetFrames(fn func(sessionID, message string) []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = fn
}

// Requests returns every chat request received so far.
func (s *ChatServer) Requests() []chatapi.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chatapi.ChatRequest(nil), s.requests...)
}

// Session returns a copy of a stored session.
func (s *ChatServer) Session(id string) (chatapi.SessionDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.sessions[id]
	if !ok {
		return chatapi.SessionDetail{}, false
	}
	out := *d
	out.Messages = append([]chatapi.Message(nil), d.Messages...)
	return out, true
}

func (s *ChatServer) requireToken(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) != "Bearer "+s.token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	return c.Next()
}

func (s *ChatServer) handleListSessions(c *fiber.Ctx) error {
	s.mu.Lock()
	list := make([]chatapi.Session, 0, len(s.sessions))
	for _, d := range s.sessions {
		list = append(list, d.Session)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt != list[j].UpdatedAt {
			return list[i].UpdatedAt > list[j].UpdatedAt
		}
		return list[i].SessionID < list[j].SessionID
	})

	return c.JSON(list)
}

func (s *ChatServer) handleGetSession(c *fiber.Ctx) error {
	d, ok := s.Session(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	return c.JSON(d)
}

func (s *ChatServer) handleDeleteSession(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.Params("id")
	if _, ok := s.sessions[id]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}
	delete(s.sessions, id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *ChatServer) handleChat(c *fiber.Ctx) error {
	var req chatapi.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	frames := s.frames
	s.mu.Unlock()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	if frames != nil {
		var id string
		if req.SessionID != nil {
			id = *req.SessionID
		}
		return c.SendString(strings.Join(frames(id, req.Message), "\n") + "\n")
	}

	var b strings.Builder
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.sessionFor(req)
	if err != nil {
		writeFrame(&b, map[string]string{"type": "error", "message": err.Error()})
		return c.SendString(b.String())
	}

	writeFrame(&b, map[string]string{"type": "session", "session_id": d.SessionID})

	var reply strings.Builder
	for _, chunk := range s.reply(req.Message) {
		reply.WriteString(chunk)
		writeFrame(&b, map[string]string{"type": "content", "content": chunk})
	}
	writeFrame(&b, map[string]string{"type": "done"})

	d.Messages = append(d.Messages,
		chatapi.Message{Role: chatapi.RoleUser, Content: req.Message},
		chatapi.Message{Role: chatapi.RoleAssistant, Content: reply.String()},
	)
	d.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)

	return c.SendString(b.String())
}

// sessionFor must be called with mu held.
func (s *ChatServer) sessionFor(req chatapi.ChatRequest) (*chatapi.SessionDetail, error) {
	if req.SessionID != nil {
		d, ok := s.sessions[*req.SessionID]
		if !ok {
			return nil, fmt.Errorf("unknown session %s", *req.SessionID)
		}
		return d, nil
	}

	id := uuid.NewString()
	ts := s.now().UTC().Format(time.RFC3339Nano)
	d := &chatapi.SessionDetail{
		Session: chatapi.Session{
			SessionID: id,
			Title:     utils.Truncate(req.Message, 40),
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
	s.sessions[id] = d
	return d, nil
}

func writeFrame(b *strings.Builder, v map[string]string) {
	data, _ := json.Marshal(v)
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
}
