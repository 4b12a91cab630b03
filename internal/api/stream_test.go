package api

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"

	apierrors "github.com/dmelo/agentchat/internal/errors"
	"github.com/dmelo/agentchat/internal/models"
)

// streamCollector records every handler invocation in order
type streamCollector struct {
	tokens    []string
	codes     []string
	completes []*models.QueryResponse
	errs      []error
}

func (c *streamCollector) handlers() StreamHandlers {
	return StreamHandlers{
		OnToken:     func(text string) { c.tokens = append(c.tokens, text) },
		OnCodeBlock: func(code string) { c.codes = append(c.codes, code) },
		OnComplete:  func(r *models.QueryResponse) { c.completes = append(c.completes, r) },
		OnError:     func(err error) { c.errs = append(c.errs, err) },
	}
}

// terminals returns the total number of terminal callbacks observed
func (c *streamCollector) terminals() int {
	return len(c.completes) + len(c.errs)
}

func newStreamTestClient(t *testing.T, mock *MockHttpClient) *AgentClient {
	t.Helper()
	client, err := NewClient(
		withHTTPClient(mock),
		WithStreamDelay(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

const happyStream = "data: {\"type\": \"token\", \"content\": \"Use \"}\n\n" +
	"data: {\"type\": \"token\", \"content\": \"pagination.\"}\n\n" +
	"data: {\"type\": \"code\", \"content\": \"client.list(page=1)\"}\n\n" +
	"data: {\"type\": \"complete\", \"data\": {\"explanation\": \"Use pagination.\", \"generated_code\": \"client.list(page=1)\"}}\n\n" +
	"data: [DONE]\n\n"

const fallbackAnswer = `{"explanation": "Hello there", "generated_code": "print(1)", "execution_result": ""}`

func TestStreamQueryPrimaryPath(t *testing.T) {
	mock := NewMockHttpClient([]byte(happyStream), 200)
	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "how do I paginate?", c.handlers())

	if got := strings.Join(c.tokens, ""); got != "Use pagination." {
		t.Errorf("tokens: got %q", got)
	}
	if len(c.codes) != 1 || c.codes[0] != "client.list(page=1)" {
		t.Errorf("codes: got %v", c.codes)
	}
	if len(c.completes) != 1 {
		t.Fatalf("expected exactly one completion, got %d (errs: %v)", len(c.completes), c.errs)
	}
	if c.completes[0].Explanation != "Use pagination." {
		t.Errorf("completion payload: %+v", c.completes[0])
	}
	if c.terminals() != 1 {
		t.Errorf("expected exactly one terminal callback, got %d", c.terminals())
	}
	if len(mock.Requests) != 1 {
		t.Errorf("expected a single request, got %d", len(mock.Requests))
	}
}

func TestStreamQueryFallsBackOnBadStatus(t *testing.T) {
	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		if req.URL.Path == models.PathQueryStream {
			return jsonResponse(503, `{"detail": "stream unavailable"}`), nil
		}
		return jsonResponse(200, fallbackAnswer), nil
	}

	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	want := []string{"Hello ", "there "}
	if len(c.tokens) != len(want) {
		t.Fatalf("tokens: got %v", c.tokens)
	}
	for i, tok := range want {
		if c.tokens[i] != tok {
			t.Errorf("token %d: got %q, want %q", i, c.tokens[i], tok)
		}
	}
	if len(c.codes) != 1 || c.codes[0] != "print(1)" {
		t.Errorf("codes: got %v", c.codes)
	}
	if c.terminals() != 1 || len(c.completes) != 1 {
		t.Fatalf("expected exactly one completion, completes=%d errs=%v", len(c.completes), c.errs)
	}
	if len(mock.Requests) != 2 {
		t.Errorf("expected stream then fallback request, got %d requests", len(mock.Requests))
	}
}

func TestStreamQueryFallsBackOnTransportError(t *testing.T) {
	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		if req.URL.Path == models.PathQueryStream {
			return nil, errors.New("connection refused")
		}
		return jsonResponse(200, fallbackAnswer), nil
	}

	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	if len(c.completes) != 1 {
		t.Fatalf("expected fallback completion, completes=%d errs=%v", len(c.completes), c.errs)
	}
	if c.completes[0].Explanation != "Hello there" {
		t.Errorf("completion payload: %+v", c.completes[0])
	}
}

func TestStreamQueryFallsBackWhenStreamEndsWithoutComplete(t *testing.T) {
	// End sentinel arrives but no complete frame preceded it
	partial := "data: {\"type\": \"token\", \"content\": \"Hel\"}\n\ndata: [DONE]\n\n"

	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		if req.URL.Path == models.PathQueryStream {
			return jsonResponse(200, partial), nil
		}
		return jsonResponse(200, fallbackAnswer), nil
	}

	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	if len(c.completes) != 1 {
		t.Fatalf("expected fallback completion, completes=%d errs=%v", len(c.completes), c.errs)
	}
	if c.terminals() != 1 {
		t.Errorf("expected exactly one terminal callback, got %d", c.terminals())
	}
	if len(mock.Requests) != 2 {
		t.Errorf("expected fallback request, got %d requests", len(mock.Requests))
	}
}

func TestStreamQueryFallsBackWhenStreamBreaksMidway(t *testing.T) {
	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		if req.URL.Path == models.PathQueryStream {
			return &fhttp.Response{
				StatusCode: 200,
				Header:     make(fhttp.Header),
				Body: &brokenBody{
					data: []byte("data: {\"type\": \"token\", \"content\": \"Hel\"}\n\n"),
					err:  errors.New("unexpected EOF"),
				},
			}, nil
		}
		return jsonResponse(200, fallbackAnswer), nil
	}

	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	if len(c.completes) != 1 {
		t.Fatalf("expected fallback completion, completes=%d errs=%v", len(c.completes), c.errs)
	}
	// Tokens from the broken primary attempt are kept; the fallback
	// replays the full answer afterwards
	if c.tokens[0] != "Hel" {
		t.Errorf("expected primary token first, got %v", c.tokens)
	}
}

func TestStreamQueryBackendErrorIsTerminal(t *testing.T) {
	errStream := "data: {\"type\": \"error\", \"content\": \"no documents ingested\"}\n\ndata: [DONE]\n\n"

	mock := NewMockHttpClient([]byte(errStream), 200)
	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	if len(c.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", c.errs)
	}
	if !apierrors.IsAppError(c.errs[0]) {
		t.Errorf("expected an application error, got %v", c.errs[0])
	}
	if len(mock.Requests) != 1 {
		t.Errorf("backend-reported failures must not trigger the fallback, got %d requests", len(mock.Requests))
	}
}

func TestStreamQueryBothPathsFail(t *testing.T) {
	mock := NewMockHttpClientWithError(errors.New("connection refused"))
	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "hello", c.handlers())

	if len(c.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", c.errs)
	}
	if !apierrors.IsNetworkError(c.errs[0]) {
		t.Errorf("expected a network error, got %v", c.errs[0])
	}
	if c.terminals() != 1 {
		t.Errorf("expected exactly one terminal callback, got %d", c.terminals())
	}
}

func TestStreamQueryCancellationSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		cancel()
		return nil, context.Canceled
	}

	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(ctx, "hello", c.handlers())

	if len(c.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", c.errs)
	}
	if !errors.Is(c.errs[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", c.errs[0])
	}
	if len(mock.Requests) != 1 {
		t.Errorf("cancellation must not trigger the fallback, got %d requests", len(mock.Requests))
	}
}

func TestStreamQueryEmptyQuestion(t *testing.T) {
	mock := NewMockHttpClient(nil, 200)
	client := newStreamTestClient(t, mock)
	defer client.Close()

	var c streamCollector
	client.StreamQuery(context.Background(), "   ", c.handlers())

	if len(c.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", c.errs)
	}
	if len(mock.Requests) != 0 {
		t.Errorf("empty question must not hit the network, got %d requests", len(mock.Requests))
	}
}

func TestStreamQueryFallbackCancelledMidReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mock := &MockHttpClient{}
	mock.DoFunc = func(req *fhttp.Request) (*fhttp.Response, error) {
		if req.URL.Path == models.PathQueryStream {
			return jsonResponse(500, `{"detail": "boom"}`), nil
		}
		return jsonResponse(200, fallbackAnswer), nil
	}

	client, err := NewClient(withHTTPClient(mock), WithStreamDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	var c streamCollector
	handlers := c.handlers()
	inner := handlers.OnToken
	handlers.OnToken = func(text string) {
		inner(text)
		cancel()
	}

	client.StreamQuery(ctx, "hello", handlers)

	if len(c.completes) != 0 {
		t.Errorf("cancelled replay must not complete, got %v", c.completes)
	}
	if len(c.errs) != 1 || !errors.Is(c.errs[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", c.errs)
	}
}
