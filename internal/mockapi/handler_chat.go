package mockapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/pkg/utils"
)

// historyLimit caps the recent-message read done before a send. The read
// checks that the session belongs to the caller; its size is only logged.
const historyLimit = 10

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, s.store.ListSessions(r.Context(), employeeID(r.Context())))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload chat.CreateSessionRequest
	if err := utils.DecodeJSON(r, &payload, true); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := s.store.CreateSession(r.Context(), employeeID(r.Context()), strings.TrimSpace(payload.SessionName))
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	messages, err := s.store.Messages(r.Context(), employeeID(r.Context()), sessionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	owner := employeeID(r.Context())

	history, err := s.store.History(r.Context(), owner, sessionID, historyLimit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	var payload chat.SendMessageRequest
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(payload.Message)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	contextType, err := chat.ParseContextType(string(payload.ContextType))
	if err != nil {
		// 未知上下文按通用对话处理
		log.Printf("[mockapi] %v, using general", err)
		contextType = chat.ContextGeneral
	}

	reply := Reply(text, contextType)
	user, assistant, err := s.store.AppendExchange(r.Context(), owner, sessionID, text, reply)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	log.Printf("[mockapi] session %d: %d prior messages, context %s", sessionID, len(history), contextType)

	utils.RespondJSON(w, http.StatusOK, chat.SendResponse{UserMessage: &user, AIResponse: &assistant})
}

// parseSessionID 解析路径中的会话 ID，非数字按不存在处理
func parseSessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return 0, false
	}
	return id, true
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, ErrNotAuthenticated):
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		log.Printf("[mockapi] store error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to generate response")
	}
}
