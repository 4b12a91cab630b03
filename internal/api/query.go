package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/dmelo/agentchat/internal/errors"
	"github.com/dmelo/agentchat/internal/models"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4096

// Query sends a question to the non-streaming endpoint and returns the
// full answer. A non-success status is a hard failure for this call.
func (c *AgentClient) Query(ctx context.Context, question string) (*models.QueryResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	resp, err := c.postJSON(ctx, "query", models.PathQuery, models.QueryRequest{Question: question})
	if err != nil {
		return nil, err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != 200 {
		return nil, c.statusError(resp, models.PathQuery, "query failed")
	}

	body, err := readAll(resp.Body)
	if err != nil {
		return nil, apierrors.NewNetworkError("query", c.endpoint(models.PathQuery), err)
	}

	c.logger.Debug("query response received",
		zap.Int("bytes", len(body)),
	)

	return parseQueryResponse(body)
}

// postJSON issues a POST with a JSON body. Transport failures come back
// as NetworkError.
func (c *AgentClient) postJSON(ctx context.Context, op, path string, payload interface{}) (*fhttp.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, c.endpoint(path), strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError(op, c.endpoint(path), err)
	}

	return resp, nil
}

// statusError builds an APIError for a non-success response, pulling the
// FastAPI "detail" field out of the body when present
func (c *AgentClient) statusError(resp *fhttp.Response, path, message string) error {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}

	detail := gjson.GetBytes(body, "detail")
	if detail.Exists() && detail.String() != "" {
		message = detail.String()
	}

	return apierrors.NewAPIErrorWithBody(resp.StatusCode, c.endpoint(path), message, string(body))
}

// parseQueryResponse decodes the query answer from the response body
func parseQueryResponse(body []byte) (*models.QueryResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.Get("explanation").Exists() {
		return nil, apierrors.NewParseError("no explanation found in response", "explanation")
	}

	return &models.QueryResponse{
		Explanation:     parsed.Get("explanation").String(),
		GeneratedCode:   parsed.Get("generated_code").String(),
		ExecutionResult: parsed.Get("execution_result").String(),
	}, nil
}

// readAll reads a response body in fixed-size chunks
func readAll(r io.Reader) ([]byte, error) {
	body := make([]byte, 0, 65536)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			body = append(body, buf[:n]...)
		}
		if err == io.EOF {
			return body, nil
		}
		if err != nil {
			return body, err
		}
	}
}
