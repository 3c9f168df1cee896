package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ExpoClient delivers mobile push notifications through the Expo push API.
type ExpoClient struct {
	url  string
	http *http.Client
}

// NewExpoClient builds a client for the given push endpoint.
func NewExpoClient(url string) *ExpoClient {
	return &ExpoClient{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type expoMessage struct {
	To       string         `json:"to"`
	Sound    string         `json:"sound"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Priority string         `json:"priority"`
}

// Send pushes one notification to one device token. A non-2xx provider
// response or transport failure is returned as an error; the caller
// decides how to aggregate it.
func (c *ExpoClient) Send(ctx context.Context, token, title, body string, data map[string]any) error {
	message := expoMessage{
		To:       token,
		Sound:    "default",
		Title:    title,
		Body:     body,
		Data:     data,
		Priority: "high",
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("expo push error %d: %s", res.StatusCode, string(detail))
	}
	return nil
}
