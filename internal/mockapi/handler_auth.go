package mockapi

import (
	"log"
	"net/http"
	"time"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/pkg/utils"
)

// handleLogin 校验账号密码并下发会话 Cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload auth.Credentials
	if err := utils.DecodeJSON(r, &payload, false); err != nil || payload.Username == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	user, token, err := s.store.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Printf("[mockapi] login rejected for %q", payload.Username)
		utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Printf("[mockapi] employee %s logged in", user.Username)
	utils.RespondJSON(w, http.StatusOK, auth.LoginResponse{Success: true, Employee: &user})
}

// handleLogout 注销当前会话，未登录也返回成功
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.store.EndLogin(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.RespondSuccess(w)
}

// handleStatus 返回当前 Cookie 对应的员工
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, auth.StatusResponse{Authenticated: false})
		return
	}
	user, err := s.store.Lookup(r.Context(), cookie.Value)
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, auth.StatusResponse{Authenticated: false})
		return
	}
	utils.RespondJSON(w, http.StatusOK, auth.StatusResponse{Authenticated: true, Employee: &user})
}

// requireEmployee 拒绝未登录的请求
func (s *Server) requireEmployee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.store.Lookup(r.Context(), cookie.Value)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmployee(r.Context(), user.ID)))
	})
}
