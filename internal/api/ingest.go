package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/dmelo/agentchat/internal/errors"
	"github.com/dmelo/agentchat/internal/models"
)

const (
	// MaxDocumentSize caps uploaded documentation files
	MaxDocumentSize = 20 * 1024 * 1024 // 20MB
)

// ProgressFunc receives upload progress as a percentage in [0, 100]
type ProgressFunc func(percent int)

// progressReader wraps a reader and reports cumulative progress
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	onUpdate ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.onUpdate != nil && p.total > 0 {
			p.onUpdate(int(p.read * 100 / p.total))
		}
	}
	return n, err
}

// Ingest uploads a documentation file for the backend to index. The
// optional onProgress callback receives upload percentage updates.
func (c *AgentClient) Ingest(ctx context.Context, filePath string, onProgress ProgressFunc) (string, error) {
	if c.IsClosed() {
		return "", fmt.Errorf("client is closed")
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() > MaxDocumentSize {
		return "", fmt.Errorf("file size exceeds maximum %d bytes", MaxDocumentSize)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	// Build the multipart body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileName := filepath.Base(filePath)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}

	_ = writer.Close()

	reader := &progressReader{
		r:        &body,
		total:    int64(body.Len()),
		onUpdate: onProgress,
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, c.endpoint(models.PathIngest), reader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = int64(body.Len())

	c.logger.Debug("ingesting document",
		zap.String("file", fileName),
		zap.Int64("size", fileInfo.Size()),
		zap.String("mime", mimeTypeForFile(fileName)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.NewNetworkError("ingest", c.endpoint(models.PathIngest), err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return "", c.statusError(resp, models.PathIngest, "upload failed")
	}

	respBody, err := readAll(resp.Body)
	if err != nil {
		return "", apierrors.NewNetworkError("ingest", c.endpoint(models.PathIngest), err)
	}

	message := gjson.GetBytes(respBody, "message")
	if !message.Exists() {
		return "", apierrors.NewParseError("no message found in response", "message")
	}

	if onProgress != nil {
		onProgress(100)
	}

	return message.String(), nil
}

// DeleteDocuments removes all ingested documents and their embeddings
func (c *AgentClient) DeleteDocuments(ctx context.Context) (string, error) {
	if c.IsClosed() {
		return "", fmt.Errorf("client is closed")
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodDelete, c.endpoint(models.PathDocuments), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.NewNetworkError("delete documents", c.endpoint(models.PathDocuments), err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != 200 {
		return "", c.statusError(resp, models.PathDocuments, "delete failed")
	}

	respBody, err := readAll(resp.Body)
	if err != nil {
		return "", apierrors.NewNetworkError("delete documents", c.endpoint(models.PathDocuments), err)
	}

	message := gjson.GetBytes(respBody, "message")
	if !message.Exists() {
		return "", apierrors.NewParseError("no message found in response", "message")
	}

	return message.String(), nil
}

// mimeTypeForFile guesses a file's MIME type from its extension
func mimeTypeForFile(fileName string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
