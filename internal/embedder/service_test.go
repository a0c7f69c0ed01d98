package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubEncoder struct {
	err error
}

func (e stubEncoder) Embed(ctx context.Context, frames [][]float32, slices [][][]float32) (*Embeddings, error) {
	if e.err != nil {
		return nil, e.err
	}

	stream := make([][]float32, len(frames))
	for i := range stream {
		stream[i] = []float32{float32(len(frames))}
	}

	sliced := make([][]float32, len(slices))
	for i := range sliced {
		sliced[i] = []float32{float32(len(slices))}
	}

	return &Embeddings{Stream: stream, Sliced: sliced}, nil
}

func TestServiceRepliesOnDedicatedChannel(t *testing.T) {
	svc := NewService(stubEncoder{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go svc.Serve(ctx)

	// Two clients with their own reply channels; each must receive the
	// response matching its own request.
	replyA := make(chan Response, 1)
	replyB := make(chan Response, 1)

	svc.Requests <- Request{ID: "a", Frames: [][]float32{{1}}, Reply: replyA}
	svc.Requests <- Request{ID: "b", Frames: [][]float32{{1}, {2}}, Reply: replyB}

	respA := <-replyA
	require.NoError(t, respA.Err)
	require.Len(t, respA.Stream, 1)

	respB := <-replyB
	require.NoError(t, respB.Err)
	require.Len(t, respB.Stream, 2)
}

func TestServicePropagatesEncoderError(t *testing.T) {
	encoderErr := errors.New("encoder down")
	svc := NewService(stubEncoder{err: encoderErr}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go svc.Serve(ctx)

	reply := make(chan Response, 1)
	svc.Requests <- Request{ID: "a", Frames: [][]float32{{1}}, Reply: reply}

	resp := <-reply
	require.ErrorIs(t, resp.Err, encoderErr)
	require.Nil(t, resp.Stream)
}

func TestServiceStopsOnContextCancel(t *testing.T) {
	svc := NewService(stubEncoder{}, 1)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		svc.Serve(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
}

func TestServiceSequentialOrdering(t *testing.T) {
	svc := NewService(stubEncoder{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go svc.Serve(ctx)

	reply := make(chan Response, 1)

	for i := range 8 {
		svc.Requests <- Request{
			ID:     fmt.Sprintf("req-%d", i),
			Frames: [][]float32{{float32(i)}},
			Reply:  reply,
		}

		resp := <-reply
		require.NoError(t, resp.Err)
	}
}
