package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
)

// ErrorBody 是所有错误响应的统一结构
type ErrorBody struct {
	Error string `json:"error"`
}

// SuccessBody 是无业务数据时的成功响应
type SuccessBody struct {
	Success bool `json:"success"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

// RespondError 发送 {"error": message}
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondSuccess 发送 {"success": true}
func RespondSuccess(w http.ResponseWriter) {
	RespondJSON(w, http.StatusOK, SuccessBody{Success: true})
}

// DecodeJSON 解析请求体；allowEmpty 为 true 时空请求体不视为错误
func DecodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
