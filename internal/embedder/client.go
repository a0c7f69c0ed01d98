package embedder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	prometheusKamino "git.mci.dev/mse/sre/phoenix/golang/kamino/internal/prometheus"
	"github.com/avast/retry-go"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Embeddings is the encoder service reply: one fine-grained embedding per
// frame and one coarse embedding per slice.
type Embeddings struct {
	Stream [][]float32 `json:"stream"`
	Sliced [][]float32 `json:"sliced"`
}

type embedRequest struct {
	Frames [][]float32   `json:"frames"`
	Slices [][][]float32 `json:"slices"`
}

// Client talks to the external embedding encoder service. The encoder is an
// opaque vector producer; everything model-specific stays on its side.
type Client struct {
	HTTPClient     *http.Client
	BaseUrl        string
	CircuitBreaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: time.Duration(config.Conf.EncoderTimeout) * time.Second,
		},
		BaseUrl:        config.Conf.EncoderBaseUrl,
		CircuitBreaker: newEncoderCircuitBreaker(),
	}
}

func newEncoderCircuitBreaker() *gobreaker.CircuitBreaker[[]byte] {
	settings := gobreaker.Settings{
		Name:     "EncoderClient",
		Interval: time.Duration(config.Conf.EncoderIntervalCB) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.Conf.EncoderConsecutiveFailuresCB
		},
		OnStateChange: func(name string, fromState, toState gobreaker.State) {
			logging.Logger.Warn("Circuit state changed",
				zap.String("service", name),
				zap.String("from", fromState.String()),
				zap.String("to", toState.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[[]byte](settings)
}

// Embed sends one feature matrix plus its coarse slices to the encoder and
// returns both embedding streams.
func (c *Client) Embed(ctx context.Context, frames [][]float32, slices [][][]float32) (*Embeddings, error) {
	timer := prometheus.NewTimer(prometheusKamino.EncoderRequestDuration)
	defer timer.ObserveDuration()

	result, err := c.CircuitBreaker.Execute(func() ([]byte, error) {
		return c.doEmbedRequest(ctx, frames, slices)
	})
	if err != nil {
		return nil, err
	}

	var embeddings Embeddings

	err = json.Unmarshal(result, &embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal encoder response: %w", err)
	}

	return &embeddings, nil
}

func (c *Client) doEmbedRequest(ctx context.Context, frames [][]float32, slices [][][]float32) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	body, err := json.Marshal(embedRequest{Frames: frames, Slices: slices})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal encoder request: %w", err)
	}

	var resultBytes []byte

	err = retry.Do(
		func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			req, err := http.NewRequestWithContext(
				ctx,
				http.MethodPost,
				c.BaseUrl+"/embed",
				bytes.NewReader(body),
			)
			if err != nil {
				return err
			}

			req.Header.Set("Content-Type", "application/json")

			resp, err := c.HTTPClient.Do(req)
			if err != nil {
				logging.Logger.Error("Encoder request failed",
					zap.String("error", err.Error()),
				)

				return err
			}

			defer func() {
				cerr := resp.Body.Close()
				if cerr != nil {
					logging.Logger.Warn("Failed to close encoder response body",
						zap.String("error", cerr.Error()),
					)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("encoder returned status %d", resp.StatusCode)
			}

			resultBytes, err = io.ReadAll(resp.Body)

			return err
		},
		retry.Attempts(config.Conf.EncoderRetryMaxAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(time.Duration(config.Conf.EncoderRetryMinBackoff)*time.Second),
		retry.MaxDelay(time.Duration(config.Conf.EncoderRetryMaxBackoff)*time.Second),
	)
	if err != nil {
		logging.Logger.Error("Encoder request failed after all retry attempts",
			zap.String("error", err.Error()),
		)

		return nil, err
	}

	return resultBytes, nil
}
