package embedder

import (
	"context"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/logging"
	"go.uber.org/zap"
)

// Encoder produces embeddings for one feature matrix plus its coarse slices.
type Encoder interface {
	Embed(ctx context.Context, frames [][]float32, slices [][][]float32) (*Embeddings, error)
}

// Request is one embedding job. Reply is the requesting worker's dedicated
// channel; the service never writes a response anywhere else, so replies
// cannot cross workers.
type Request struct {
	ID     string
	Frames [][]float32
	Slices [][][]float32
	Reply  chan Response
}

// Response carries both embedding streams, or the error that produced
// neither.
type Response struct {
	Stream [][]float32
	Sliced [][]float32
	Err    error
}

// Service serializes access to the encoder: exactly one goroutine owns the
// Encoder and drains the shared request channel.
type Service struct {
	Encoder  Encoder
	Requests chan Request
}

func NewService(encoder Encoder, queueDepth int) *Service {
	return &Service{
		Encoder:  encoder,
		Requests: make(chan Request, queueDepth),
	}
}

// Serve drains requests until the context ends. It is meant to run as the
// single encoder-owning goroutine.
func (s *Service) Serve(ctx context.Context) {
	logging.Logger.Info("Encoder service started")

	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Encoder service stopping", zap.Error(ctx.Err()))

			return
		case req := <-s.Requests:
			embeddings, err := s.Encoder.Embed(ctx, req.Frames, req.Slices)
			if err != nil {
				req.Reply <- Response{Err: err}

				continue
			}

			req.Reply <- Response{
				Stream: embeddings.Stream,
				Sliced: embeddings.Sliced,
			}
		}
	}
}
