package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BridgeClient talks to the whatsapp-web.js bridge process, which owns
// the browser-automation session. The bridge exposes two endpoints this
// core cares about: POST /api/send-message and GET /api/status.
type BridgeClient struct {
	baseURL string
	client  *http.Client
}

func NewBridgeClient(baseURL string, timeout time.Duration) *BridgeClient {
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type statusResponse struct {
	Ready bool `json:"ready"`
}

// Send delivers one message through the bridge. The destination must
// already be in wire format (country code included).
func (c *BridgeClient) Send(ctx context.Context, to, message string) error {
	reqBody, err := json.Marshal(sendRequest{To: to, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send-message", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	if resp.StatusCode != http.StatusOK || !sr.Success {
		if sr.Error != "" {
			return fmt.Errorf("bridge rejected send: %s", sr.Error)
		}
		return fmt.Errorf("bridge rejected send: status code %d", resp.StatusCode)
	}

	return nil
}

// Ready reports whether the bridge's WhatsApp session is paired and able
// to send. An unreachable bridge counts as not ready.
func (c *BridgeClient) Ready(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return false, fmt.Errorf("failed to decode status response: %w", err)
	}

	return sr.Ready, nil
}
