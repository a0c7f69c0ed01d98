package embedder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
)

func setupEncoderConfig(t *testing.T, baseURL string) {
	t.Helper()

	prev := config.Conf

	t.Cleanup(func() {
		config.Conf = prev
	})

	config.Conf.EncoderBaseUrl = baseURL
	config.Conf.EncoderTimeout = 5
	config.Conf.EncoderRetryMaxAttempts = 2
	config.Conf.EncoderRetryMinBackoff = 0
	config.Conf.EncoderRetryMaxBackoff = 0
	config.Conf.EncoderIntervalCB = 30
	config.Conf.EncoderConsecutiveFailuresCB = 10
}

func TestClientEmbed(t *testing.T) {
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Frames, 2)
		require.Len(t, req.Slices, 1)

		resp := Embeddings{
			Stream: [][]float32{{1, 0}, {0, 1}},
			Sliced: [][]float32{{0.5, 0.5}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	setupEncoderConfig(t, server.URL)

	client := NewClient()

	embeddings, err := client.Embed(
		context.Background(),
		[][]float32{{0.1}, {0.2}},
		[][][]float32{{{0.1}, {0.2}}},
	)
	require.NoError(t, err)

	require.Equal(t, "/embed", gotPath)
	require.Len(t, embeddings.Stream, 2)
	require.Len(t, embeddings.Sliced, 1)
}

func TestClientEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	setupEncoderConfig(t, server.URL)

	client := NewClient()

	_, err := client.Embed(context.Background(), [][]float32{{0.1}}, nil)
	require.Error(t, err)
}

func TestClientEmbedCanceledContext(t *testing.T) {
	setupEncoderConfig(t, "http://127.0.0.1:1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient()

	_, err := client.Embed(ctx, [][]float32{{0.1}}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
