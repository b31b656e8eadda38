package rpc_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalbasit/mule/pkg/rpc"
)

func TestServerClient_RoundTrip(t *testing.T) {
	t.Parallel()

	s := rpc.NewServer()
	s.Handle("echo", func(_ context.Context, params json.RawMessage) (any, error) {
		var in struct {
			Value string `json:"value"`
		}

		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}

		return map[string]string{"value": in.Value}, nil
	})

	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := rpc.NewClient(srv.URL)

	var out struct {
		Value string `json:"value"`
	}

	err := c.Call(context.Background(), "echo", map[string]string{"value": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Value)
}

func TestServerClient_UnknownMethod(t *testing.T) {
	t.Parallel()

	s := rpc.NewServer()

	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	c := rpc.NewClient(srv.URL)

	err := c.Call(context.Background(), "nope", nil, nil)
	require.Error(t, err)
}
