package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Govind-619/LibTrack/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret signs tokens in handler tests
const TestJWTSecret = "test-jwt-secret"

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	RawBody []byte
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Header     http.Header
	Raw        []byte
	Body       map[string]interface{}
}

// Data returns the "data" object of a StandardResponse body
func (r TestResponse) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// MakeTestRequest makes a test HTTP request
func MakeTestRequest(t *testing.T, router http.Handler, req TestRequest) TestResponse {
	t.Helper()

	body := req.RawBody
	if body == nil && req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		require.NoError(t, err, "marshal request body")
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewBuffer(body))
	require.NoError(t, err, "create request")

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	var responseBody map[string]interface{}
	if w.Body.Len() > 0 && isJSON(w.Header().Get("Content-Type")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &responseBody), "unmarshal response body")
	}

	return TestResponse{
		StatusCode: w.Code,
		Header:     w.Header(),
		Raw:        w.Body.Bytes(),
		Body:       responseBody,
	}
}

func isJSON(contentType string) bool {
	return len(contentType) >= 16 && contentType[:16] == "application/json"
}

// AssertResponse asserts the status code and, when given, the error kind of a response
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int, expectedKind string) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, "body: %s", string(response.Raw))
	if expectedKind != "" {
		assert.Equal(t, expectedKind, response.Data()["kind"])
	}
}

// GetTestToken generates a JWT for the given user signed with TestJWTSecret
func GetTestToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := GenerateToken(user, TestJWTSecret)
	require.NoError(t, err, "generate test token")
	return token
}

// BearerHeader returns the Authorization header for a token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
