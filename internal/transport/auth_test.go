package transport

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "test-api-key")
	assert.Empty(t, req.Header)
}

func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "test-api-key")
	assert.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))
}

func TestHeaderAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&HeaderAuth{Header: "x-api-key"}).Apply(req, "test-api-key")
	assert.Equal(t, "test-api-key", req.Header.Get("x-api-key"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "key"}

	u, _ := url.Parse("https://example.com/casesForUser/2?existing=value")
	req := &http.Request{URL: u, Header: make(http.Header)}
	auth.Apply(req, "test-api-key")
	assert.Equal(t, "test-api-key", req.URL.Query().Get("key"))
	assert.Equal(t, "value", req.URL.Query().Get("existing"))

	// nil URL is ignored
	auth.Apply(&http.Request{Header: make(http.Header)}, "test-api-key")
}

func TestParseAuthScheme(t *testing.T) {
	tests := []struct {
		scheme string
		want   Authenticator
	}{
		{"", &BearerAuth{}},
		{"bearer", &BearerAuth{}},
		{"none", &NoAuth{}},
		{"header", &HeaderAuth{Header: "X-API-Key"}},
		{"header:X-Case-Token", &HeaderAuth{Header: "X-Case-Token"}},
		{"query", &QueryAuth{Param: "api_key"}},
		{"query:key", &QueryAuth{Param: "key"}},
	}
	for _, tt := range tests {
		got, err := ParseAuthScheme(tt.scheme)
		require.NoError(t, err, tt.scheme)
		assert.Equal(t, tt.want, got, tt.scheme)
	}

	_, err := ParseAuthScheme("oauth")
	assert.Error(t, err)
}
