package api

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"go.uber.org/zap"

	apierrors "github.com/dmelo/agentchat/internal/errors"
	"github.com/dmelo/agentchat/internal/models"
)

// StreamHandlers receives the events of one streaming query. OnToken and
// OnCodeBlock may fire any number of times; exactly one of OnComplete or
// OnError fires, last.
type StreamHandlers struct {
	OnToken     func(text string)
	OnCodeBlock func(code string)
	OnComplete  func(result *models.QueryResponse)
	OnError     func(err error)
}

func (h StreamHandlers) token(text string) {
	if h.OnToken != nil {
		h.OnToken(text)
	}
}

func (h StreamHandlers) codeBlock(code string) {
	if h.OnCodeBlock != nil {
		h.OnCodeBlock(code)
	}
}

func (h StreamHandlers) complete(result *models.QueryResponse) {
	if h.OnComplete != nil {
		h.OnComplete(result)
	}
}

func (h StreamHandlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// StreamQuery submits a question and streams the answer through the
// handlers. The primary path consumes the backend's event stream; if
// opening it fails, the status is non-success, or the stream breaks or
// ends without a complete answer, the client falls back to a single
// non-streaming request replayed as a simulated token stream. Exactly
// one terminal callback fires per invocation. Cancelling ctx is
// terminal and skips the fallback.
func (c *AgentClient) StreamQuery(ctx context.Context, question string, handlers StreamHandlers) {
	if strings.TrimSpace(question) == "" {
		handlers.fail(apierrors.NewAppError("question cannot be empty"))
		return
	}

	err := c.streamPrimary(ctx, question, handlers)
	if err == nil {
		return
	}

	switch {
	case ctx.Err() != nil:
		// Cancellation is terminal, not a reason to retry
		handlers.fail(ctx.Err())
		return
	case apierrors.IsAppError(err):
		// The backend explicitly reported a failure; retrying the
		// same question would fail the same way
		handlers.fail(err)
		return
	}

	c.logger.Debug("streaming failed, falling back to plain query",
		zap.Error(err),
	)

	c.streamFallback(ctx, question, handlers)
}

// streamIncompleteError signals a stream that closed without delivering
// a usable answer
type streamIncompleteError struct {
	reason string
}

func (e *streamIncompleteError) Error() string {
	return "stream ended without a complete answer: " + e.reason
}

// streamPrimary drives the real event stream. A nil return means a
// terminal callback already fired.
func (c *AgentClient) streamPrimary(ctx context.Context, question string, handlers StreamHandlers) error {
	if c.IsClosed() {
		return apierrors.NewNetworkError("stream query", c.endpoint(models.PathQueryStream), context.Canceled)
	}

	body, err := json.Marshal(models.QueryRequest{Question: question})
	if err != nil {
		return err
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, c.endpoint(models.PathQueryStream),
		strings.NewReader(string(body)))
	if err != nil {
		return err
	}

	for key, value := range models.StreamHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.NewNetworkError("stream query", c.endpoint(models.PathQueryStream), err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != 200 {
		return c.statusError(resp, models.PathQueryStream, "stream request failed")
	}

	decoder := NewFrameDecoder()
	var finalResult *models.QueryResponse

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				switch frame.Kind {
				case FrameToken:
					handlers.token(frame.Text)
				case FrameCode:
					handlers.codeBlock(frame.Text)
				case FrameComplete:
					// Held back until the end sentinel confirms the
					// stream finished cleanly
					finalResult = frame.Payload
				case FrameError:
					return apierrors.NewAppError(frame.Text)
				case FrameEnd:
					if finalResult == nil {
						return &streamIncompleteError{reason: "end sentinel before complete frame"}
					}
					handlers.complete(finalResult)
					return nil
				}
			}
		}
		if readErr != nil {
			return &streamIncompleteError{reason: readErr.Error()}
		}
	}
}

// streamFallback fetches the full answer in one request and replays it
// as a simulated token stream with a fixed inter-token delay.
func (c *AgentClient) streamFallback(ctx context.Context, question string, handlers StreamHandlers) {
	result, err := c.Query(ctx, question)
	if err != nil {
		handlers.fail(err)
		return
	}

	for _, word := range strings.Split(result.Explanation, " ") {
		handlers.token(word + " ")
		if err := sleepContext(ctx, c.streamDelay); err != nil {
			handlers.fail(err)
			return
		}
	}

	if result.GeneratedCode != "" {
		handlers.codeBlock(result.GeneratedCode)
	}

	handlers.complete(result)
}

// sleepContext pauses for d or until ctx is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
