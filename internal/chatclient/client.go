package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"logi-match/internal/domain"
)

var (
	ErrCounterpartNotFound = errors.New("counterpart does not exist")
	ErrUnauthorized        = errors.New("unauthorized")
)

// SendResult refleja la respuesta de envio. Los errores de transporte llegan
// como Success=false, nunca como error crudo.
type SendResult struct {
	Success bool           `json:"success"`
	Message domain.Message `json:"message"`
	Error   string         `json:"error,omitempty"`
}

// HistoryResult refleja la respuesta de historial.
type HistoryResult struct {
	Success  bool             `json:"success"`
	Messages []domain.Message `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

// StartResult es el arranque de conversacion calculado por el servidor.
type StartResult struct {
	ChannelName  string           `json:"channelName"`
	Counterpart  *domain.Profile  `json:"counterpart,omitempty"`
	GreetingSent bool             `json:"greetingSent"`
	Messages     []domain.Message `json:"messages"`
}

// Client habla con la API de chat usando un access token Bearer.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type wireMessage struct {
	Text        string             `json:"text"`
	UserID      string             `json:"userId"`
	RecipientID string             `json:"recipientId,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	JobContext  *domain.JobContext `json:"jobContext,omitempty"`
}

func toWire(msg domain.Message) wireMessage {
	w := wireMessage{
		Text:        msg.Text,
		UserID:      msg.UserID,
		RecipientID: msg.RecipientID,
		JobContext:  msg.JobContext,
	}
	if !msg.Timestamp.IsZero() {
		w.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return w
}

// SendMessage invoca POST /api/chat/send.
func (c *Client) SendMessage(ctx context.Context, channelName string, msg domain.Message) SendResult {
	body := map[string]any{"channelName": channelName, "message": toWire(msg)}
	var out SendResult
	if _, err := c.do(ctx, http.MethodPost, "/api/chat/send", body, &out); err != nil {
		return SendResult{Success: false, Error: errorText(out.Error, err)}
	}
	return out
}

// FetchHistory invoca GET /api/chat/history.
func (c *Client) FetchHistory(ctx context.Context, channelName string, limit int) HistoryResult {
	q := url.Values{}
	q.Set("channelName", channelName)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out HistoryResult
	if _, err := c.do(ctx, http.MethodGet, "/api/chat/history?"+q.Encode(), nil, &out); err != nil {
		return HistoryResult{Success: false, Error: errorText(out.Error, err)}
	}
	if out.Messages == nil {
		out.Messages = []domain.Message{}
	}
	return out
}

// StartConversation invoca POST /api/chat/start.
func (c *Client) StartConversation(ctx context.Context, recipientID string, job *domain.JobContext, limit int) (StartResult, error) {
	body := map[string]any{"recipientId": recipientID, "jobContext": job, "limit": limit}
	var out struct {
		StartResult
		Error string `json:"error"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/chat/start", body, &out)
	if status == http.StatusNotFound {
		return StartResult{}, ErrCounterpartNotFound
	}
	if err != nil {
		return StartResult{}, fmt.Errorf("start conversation: %s", errorText(out.Error, err))
	}
	return out.StartResult, nil
}

// Counterpart invoca GET /api/users/:id.
func (c *Client) Counterpart(ctx context.Context, userID string) (domain.Profile, error) {
	var out struct {
		User domain.Profile `json:"user"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &out)
	if status == http.StatusNotFound {
		return domain.Profile{}, ErrCounterpartNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return out.User, nil
}

// Trigger invoca POST /api/pusher/trigger. Quien llama puede ignorar el error.
func (c *Client) Trigger(ctx context.Context, channelName, event string, msg domain.Message) error {
	body := map[string]any{"channelName": channelName, "eventName": event, "message": toWire(msg)}
	_, err := c.do(ctx, http.MethodPost, "/api/pusher/trigger", body, nil)
	return err
}

// Ask invoca POST /api/ai/ask y devuelve la respuesta del asistente.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	var out struct {
		Answer string `json:"answer"`
		Error  string `json:"error"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/ai/ask", map[string]string{"question": question}, &out); err != nil {
		return "", fmt.Errorf("ask: %s", errorText(out.Error, err))
	}
	return out.Answer, nil
}

// do devuelve el status HTTP (0 si no hubo respuesta). Decodifica el cuerpo
// tambien en respuestas de error para exponer el campo error del servidor.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, ErrUnauthorized
	case resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func errorText(serverErr string, err error) string {
	if strings.TrimSpace(serverErr) != "" {
		return serverErr
	}
	return err.Error()
}
