package http

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
	"github.com/vovakirdan/wirechat-client/internal/store"
)

const defaultHistoryLimit = 50

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	client  Client
	history store.HistoryStore
	log     *zerolog.Logger

	mu    sync.Mutex
	chats map[string]*core.Chat
}

// NewAPIHandlers creates a new API handlers instance. Chats opened by remote
// participants are tracked alongside the ones started through the API.
func NewAPIHandlers(client Client, history store.HistoryStore, logger *zerolog.Logger) *APIHandlers {
	h := &APIHandlers{
		client:  client,
		history: history,
		log:     logger,
		chats:   make(map[string]*core.Chat),
	}
	client.Subscribe(func(ev core.Event) {
		if ev.Kind == core.EventChatStarted && ev.Chat != nil {
			h.trackChat(ev.Chat)
		}
	})
	return h
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SelfResponse is the local user with its publishing state.
type SelfResponse struct {
	proto.Buddy
	LoggedIn       bool `json:"logged_in"`
	UpdatesEnabled bool `json:"updates_enabled"`
}

// UpdateSelfRequest patches the local profile. Absent fields are left alone.
type UpdateSelfRequest struct {
	DisplayName      *string           `json:"display_name" binding:"omitempty,min=1,max=64"`
	Status           *string           `json:"status"`
	Properties       map[string]string `json:"properties"`
	RemoveProperties []string          `json:"remove_properties"`
}

// StartChatRequest represents the start chat request body.
type StartChatRequest struct {
	BuddyID string `json:"buddy_id" binding:"required"`
}

// ChatResponse represents a chat in API responses.
type ChatResponse struct {
	ID      string        `json:"id"`
	Buddies []proto.Buddy `json:"buddies"`
}

// StatusUpdateResponse represents one history record.
type StatusUpdateResponse struct {
	ID          int64  `json:"id"`
	BuddyID     string `json:"buddy_id"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	RecordedAt  string `json:"recorded_at"`
}

// GetSelf returns the local user.
// GET /api/self
func (h *APIHandlers) GetSelf(c *gin.Context) {
	self := h.client.CurrentUser()
	if self == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not logged in"})
		return
	}
	c.JSON(http.StatusOK, h.selfResponse(self))
}

// UpdateSelf applies profile changes through the self buddy so they are published.
// PATCH /api/self
func (h *APIHandlers) UpdateSelf(c *gin.Context) {
	self := h.client.CurrentUser()
	if self == nil || !h.client.LoggedIn() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not logged in"})
		return
	}

	var req UpdateSelfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update self request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// Validate everything before the first mutation publishes.
	var status *core.Status
	if req.Status != nil {
		parsed, err := core.ParseStatus(*req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		status = &parsed
	}

	ctx := c.Request.Context()
	var publishErr error
	if req.DisplayName != nil {
		publishErr = errors.Join(publishErr, self.SetDisplayName(ctx, *req.DisplayName))
	}
	if status != nil {
		publishErr = errors.Join(publishErr, self.SetStatus(ctx, *status))
	}
	if len(req.Properties) > 0 {
		keys := make([]string, 0, len(req.Properties))
		for k := range req.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			publishErr = errors.Join(publishErr, self.SetProperty(ctx, k, req.Properties[k]))
		}
	}
	for _, k := range req.RemoveProperties {
		publishErr = errors.Join(publishErr, self.DeleteProperty(ctx, k))
	}

	if publishErr != nil {
		h.log.Warn().Err(publishErr).Msg("failed to publish profile update")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "profile updated locally but publishing failed"})
		return
	}

	h.log.Info().Str("display_name", self.DisplayName()).Str("status", self.Status().String()).Msg("profile updated")
	c.JSON(http.StatusOK, h.selfResponse(self))
}

// ListBuddies returns every known buddy.
// GET /api/buddies
func (h *APIHandlers) ListBuddies(c *gin.Context) {
	buddies := h.client.Buddies()
	h.log.Debug().Int("buddy_count", len(buddies)).Msg("buddies listed")
	c.JSON(http.StatusOK, buddiesToProto(buddies))
}

// GetBuddy returns one known buddy.
// GET /api/buddies/:id
func (h *APIHandlers) GetBuddy(c *gin.Context) {
	b, ok := h.client.Buddy(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "buddy not found"})
		return
	}
	c.JSON(http.StatusOK, buddyToProto(b))
}

// StartChat opens a conversation with a known buddy.
// POST /api/chats
func (h *APIHandlers) StartChat(c *gin.Context) {
	var req StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid start chat request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	buddy, ok := h.client.Buddy(req.BuddyID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "buddy not found"})
		return
	}

	chat, err := h.client.StartChat(c.Request.Context(), buddy)
	if err != nil {
		if errors.Is(err, core.ErrNotLoggedIn) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "not logged in"})
			return
		}
		h.log.Warn().Err(err).Str("buddy_id", req.BuddyID).Msg("failed to start chat")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to reach buddy"})
		return
	}
	h.trackChat(chat)
	h.pruneChats()

	h.log.Info().Str("chat_id", chat.ID()).Str("buddy_id", buddy.ID()).Msg("chat started")
	c.JSON(http.StatusCreated, chatResponse(chat))
}

// ListChats returns the open chats.
// GET /api/chats
func (h *APIHandlers) ListChats(c *gin.Context) {
	h.pruneChats()

	h.mu.Lock()
	response := make([]ChatResponse, 0, len(h.chats))
	for _, chat := range h.chats {
		response = append(response, chatResponse(chat))
	}
	h.mu.Unlock()

	sort.Slice(response, func(i, j int) bool { return response[i].ID < response[j].ID })
	c.JSON(http.StatusOK, response)
}

// LeaveChat closes an open chat.
// DELETE /api/chats/:id
func (h *APIHandlers) LeaveChat(c *gin.Context) {
	id := c.Param("id")
	h.pruneChats()

	h.mu.Lock()
	chat, ok := h.chats[id]
	delete(h.chats, id)
	h.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "chat not found"})
		return
	}
	if err := chat.Leave(); err != nil {
		h.log.Warn().Err(err).Str("chat_id", id).Msg("failed to close chat session")
	}
	c.Status(http.StatusNoContent)
}

// ListHistory returns recorded status updates, newest first.
// GET /api/history?buddy_id=&limit=
func (h *APIHandlers) ListHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	buddyID := c.Query("buddy_id")
	updates, err := h.history.ListStatusUpdates(c.Request.Context(), buddyID, limit)
	if err != nil {
		if errors.Is(err, store.ErrInvalidBuddyID) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid buddy_id"})
			return
		}
		h.log.Error().Err(err).Str("buddy_id", buddyID).Msg("failed to list history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]StatusUpdateResponse, 0, len(updates))
	for _, u := range updates {
		response = append(response, StatusUpdateResponse{
			ID:          u.ID,
			BuddyID:     u.BuddyID,
			DisplayName: u.DisplayName,
			Status:      core.Status(u.Status).String(),
			RecordedAt:  u.RecordedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *APIHandlers) trackChat(chat *core.Chat) {
	h.mu.Lock()
	h.chats[chat.ID()] = chat
	h.mu.Unlock()
}

// pruneChats closes chats left over from an earlier login and chats whose
// participants have all gone offline. It must not run inside an event callback.
func (h *APIHandlers) pruneChats() {
	current := h.client.CurrentUser()
	loggedIn := h.client.LoggedIn()

	var stale []*core.Chat
	h.mu.Lock()
	for id, chat := range h.chats {
		if loggedIn && chat.Self() == current && anyOnline(chat.Buddies()) {
			continue
		}
		delete(h.chats, id)
		stale = append(stale, chat)
	}
	h.mu.Unlock()

	for _, chat := range stale {
		if err := chat.Leave(); err != nil {
			h.log.Debug().Err(err).Str("chat_id", chat.ID()).Msg("failed to close stale chat")
		}
	}
	if len(stale) > 0 {
		h.log.Debug().Int("chat_count", len(stale)).Msg("stale chats pruned")
	}
}

func anyOnline(buddies []*core.Buddy) bool {
	for _, b := range buddies {
		if b.IsOnline() {
			return true
		}
	}
	return false
}

func (h *APIHandlers) selfResponse(self *core.SelfBuddy) SelfResponse {
	return SelfResponse{
		Buddy:          buddyToProto(self.Buddy),
		LoggedIn:       h.client.LoggedIn(),
		UpdatesEnabled: self.UpdatesEnabled(),
	}
}

func chatResponse(chat *core.Chat) ChatResponse {
	return ChatResponse{
		ID:      chat.ID(),
		Buddies: buddiesToProto(chat.Buddies()),
	}
}
