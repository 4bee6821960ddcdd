package openai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements HTTPClient for testing
type mockHTTPClient struct {
	status   int
	response string
	err      error
	last     *http.Request
	body     []byte
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.last = req
	if req.Body != nil {
		m.body, _ = io.ReadAll(req.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(m.response)),
	}, nil
}

func TestCreateChatCompletion(t *testing.T) {
	mock := &mockHTTPClient{
		response: `{"id":"c1","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}]}`,
	}
	client := NewClient("sk-test", WithHTTPClient(mock), WithBaseURL("https://llm.example/v1/"))

	temp := 0.2
	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          GPT4oMini,
		Messages:       []ChatCompletionMessage{{Role: "user", Content: "hi"}},
		Temperature:    &temp,
		ResponseFormat: JSONObject,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text())

	assert.Equal(t, "https://llm.example/v1/chat/completions", mock.last.URL.String())
	assert.Equal(t, "Bearer sk-test", mock.last.Header.Get("Authorization"))

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(mock.body, &sent))
	assert.Equal(t, GPT4oMini, sent["model"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, sent["response_format"])
	assert.NotContains(t, sent, "max_tokens")
}

func TestCreateChatCompletionStatusError(t *testing.T) {
	mock := &mockHTTPClient{status: http.StatusTooManyRequests, response: "slow down\n"}
	client := NewClient("sk-test", WithHTTPClient(mock))

	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: GPT4o})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "slow down", apiErr.Body)
}

func TestCreateChatCompletionTransportError(t *testing.T) {
	client := NewClient("sk-test", WithHTTPClient(&mockHTTPClient{err: io.ErrUnexpectedEOF}))

	_, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: GPT4o})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCreateChatCompletionOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test", WithBaseURL(srv.URL))
	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: GPT4o})
	require.NoError(t, err)
	assert.Empty(t, resp.Text())
}
