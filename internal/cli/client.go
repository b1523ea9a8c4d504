package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Типы ответов API ---

// Accepted — принятый запрос на действие.
type Accepted struct {
	ID     uint64 `json:"id"`
	Action string `json:"action"`
	URL    string `json:"url"`
}

// Stats — статистика пула.
type Stats struct {
	State    string   `json:"state"`
	OK       []uint64 `json:"ok"`
	Skipped  []uint64 `json:"skipped"`
	Aborted  []uint64 `json:"aborted"`
	Failed   []uint64 `json:"failed"`
	InFlight int      `json:"in_flight"`
	Active   int      `json:"active"`
	Queued   int      `json:"queued"`
	Workers  int      `json:"workers"`
}

// Record — запись журнала.
type Record struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	WorkerPID   int        `json:"worker_pid,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time  `json:"finished_at"`
	Error       string     `json:"error,omitempty"`
}

// CatalogItem — действие каталога.
type CatalogItem struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// PushRequest — запрос на действие.
type PushRequest struct {
	Action    string `json:"action"`
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

// HistoryOpts — фильтр журнала.
type HistoryOpts struct {
	Status string
	Name   string
	Limit  int
}

// --- Ошибки ---

// APIError — ошибка, возвращённая сервером.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRejected сообщает, что пул отказал из-за переполнения (можно повторить).
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Push отправляет запрос на действие.
func (c *Client) Push(req PushRequest) (*Accepted, error) {
	var acc Accepted
	err := c.call(http.MethodPost, "/api/v1/actions", req, &acc)
	return &acc, err
}

// Stats возвращает статистику пула.
func (c *Client) Stats() (*Stats, error) {
	var st Stats
	err := c.call(http.MethodGet, "/api/v1/actions/stats", nil, &st)
	return &st, err
}

// History возвращает записи журнала.
func (c *Client) History(opts HistoryOpts) ([]Record, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Name != "" {
		params.Set("name", opts.Name)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/v1/actions/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var records []Record
	err := c.call(http.MethodGet, path, nil, &records)
	return records, err
}

// Catalog возвращает доступные действия.
func (c *Client) Catalog() ([]CatalogItem, error) {
	var items []CatalogItem
	err := c.call(http.MethodGet, "/api/v1/actions/catalog", nil, &items)
	return items, err
}

// call выполняет запрос и разбирает поле data ответа в result.
// Списки и одиночные объекты приходят в одном и том же поле data.
func (c *Client) call(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Error.Message
		}
		return apiErr
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(dr.Data, result)
}
