package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AuthEndpoint is the platform endpoint that mints client session keys.
const AuthEndpoint = "https://api.layercode.com/v1/agents/web/authorize_session"

// Authorize proxies a browser's session authorization request to the
// platform, attaching the backend API key. The key never reaches the
// client; the platform's response is passed through as-is.
func (h *Handler) Authorize(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}
	if !json.Valid(body) || len(bytes.TrimSpace(body)) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}

	if h.config.APIKey == "" {
		log.Printf("ERROR: LAYERCODE_API_KEY is not configured")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "API key not configured"})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.authEndpoint(), bytes.NewReader(body))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build request"})
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.Printf("ERROR: failed to reach platform API: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "platform API unreachable"})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to read platform response"})
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Printf("ERROR: platform API error %d", resp.StatusCode)
	} else {
		log.Printf("INFO: session authorized")
	}

	return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, respBody)
}

// authEndpoint allows tests to point the proxy at a local server.
func (h *Handler) authEndpoint() string {
	if h.authorizeURL != "" {
		return h.authorizeURL
	}
	return AuthEndpoint
}
