package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type registryClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *registryClient {
	return &registryClient{
		baseURL: serverURL,
		token:   resolvedToken(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do builds a request against the registry, attaching the bearer token when set.
func (c *registryClient) do(method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// getRaw performs a GET request and returns the raw response envelope.
func (c *registryClient) getRaw(path string) (map[string]any, error) {
	var result map[string]any
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// getData performs a GET request and unwraps the "data" field of the envelope.
func (c *registryClient) getData(path string) (any, error) {
	result, err := c.getRaw(path)
	if err != nil {
		return nil, err
	}
	if data, ok := result["data"]; ok {
		return data, nil
	}
	return result, nil
}
