package api

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	apierrors "github.com/dmelo/agentchat/internal/errors"
	"github.com/dmelo/agentchat/internal/models"
)

// Execute runs code in the backend sandbox and returns its output
func (c *AgentClient) Execute(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}

	if c.IsClosed() {
		return "", fmt.Errorf("client is closed")
	}

	resp, err := c.postJSON(ctx, "execute", models.PathExecute, models.ExecuteRequest{Code: code})
	if err != nil {
		return "", err
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode != 200 {
		return "", c.statusError(resp, models.PathExecute, "execution failed")
	}

	body, err := readAll(resp.Body)
	if err != nil {
		return "", apierrors.NewNetworkError("execute", c.endpoint(models.PathExecute), err)
	}

	output := gjson.GetBytes(body, "output")
	if !output.Exists() {
		return "", apierrors.NewParseError("no output found in response", "output")
	}

	return output.String(), nil
}
