package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

type persistedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the cookies the jar would send to the API to path, so a
// later process can resume the same server session.
func (c *Client) SaveCookies(path string) error {
	cookies := c.jar.Cookies(c.base)
	stored := make([]persistedCookie, 0, len(cookies))
	for _, cookie := range cookies {
		stored = append(stored, persistedCookie{Name: cookie.Name, Value: cookie.Value})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("gateway: encode cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("gateway: create cookie dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("gateway: write cookies: %w", err)
	}
	return nil
}

// LoadCookies restores cookies saved by SaveCookies. A missing file is not
// an error.
func (c *Client) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gateway: read cookies: %w", err)
	}

	var stored []persistedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("gateway: decode cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, item := range stored {
		cookies = append(cookies, &http.Cookie{Name: item.Name, Value: item.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
	return nil
}

// ClearCookies removes the saved cookie file. A missing file is not an error.
func ClearCookies(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("gateway: remove cookies: %w", err)
	}
	return nil
}
