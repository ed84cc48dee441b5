//go:build integration && linux

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newTestClient(baseURL, apiKey string) *testClient {
	return &testClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

func (c *testClient) doRequest(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, c.baseURL+path, body)
	require.NoError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	require.NoError(t, err)
	return resp
}

// upload posts files as a multipart form under the given field.
func (c *testClient) upload(t *testing.T, path, field string, files map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return c.doRequest(t, "POST", path, &buf, mw.FormDataContentType())
}

func (c *testClient) executeScript(t *testing.T, name, content string) string {
	t.Helper()
	resp := c.upload(t, "/execute", "file", map[string]string{name: content})
	require.Equal(t, http.StatusOK, resp.StatusCode, "failed to dispatch script")
	body := decodeResponse(t, resp)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (c *testClient) cleanup(t *testing.T, sessionID string) {
	t.Helper()
	resp := c.doRequest(t, "POST", "/cleanup/"+sessionID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// waitForLogs polls the result endpoint until the sandbox has exited.
func (c *testClient) waitForLogs(t *testing.T, sessionID string) string {
	t.Helper()

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		resp := c.doRequest(t, "GET", "/result/"+sessionID, nil, "")
		switch resp.StatusCode {
		case http.StatusAccepted:
			resp.Body.Close()
			time.Sleep(200 * time.Millisecond)
		case http.StatusOK:
			body := decodeResponse(t, resp)
			logs, _ := body["logs"].(string)
			return logs
		default:
			resp.Body.Close()
			t.Fatalf("unexpected result status %d", resp.StatusCode)
		}
	}
	t.Fatal("timed out waiting for script to finish")
	return ""
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func debugBody(resp *http.Response) string {
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return fmt.Sprintf("status=%d body=%s", resp.StatusCode, data)
}
