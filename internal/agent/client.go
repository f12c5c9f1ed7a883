package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blockci/internal/core"
)

// Client is a core.CommandRunner that executes commands on an agent.
type Client struct {
	BaseURL string
	Token   string // sent as a bearer token when set
	HTTP    *http.Client
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Minute},
	}
}

// RunCommand sends cmd to the agent and waits for its output.
func (c *Client) RunCommand(ctx context.Context, cmd core.Command, env map[string]string) (*core.CommandOutput, error) {
	body, err := json.Marshal(RunRequest{Command: cmd, Env: env})
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var rr RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode agent response: %w", err)
	}

	out := &core.CommandOutput{Stdout: rr.Stdout, Stderr: rr.Stderr, ExitCode: rr.ExitCode}
	if rr.Error != "" {
		return out, errors.New("agent: " + rr.Error)
	}
	return out, nil
}
