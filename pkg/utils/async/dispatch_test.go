package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/drover/pkg/utils/async"
)

func TestDispatch_RunsHandler(t *testing.T) {
	done := make(chan struct{})

	async.Dispatch(context.Background(), func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not executed")
	}
}

func TestDispatch_DetachesFromCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	async.Dispatch(ctx, func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	})

	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler was not executed")
	}
}

func TestDispatch_SurvivesPanicAndError(t *testing.T) {
	done := make(chan struct{})

	async.Dispatch(context.Background(), func(ctx context.Context) error {
		defer close(done)
		return errors.New("handler failed")
	})
	async.Dispatch(context.Background(), func(ctx context.Context) error {
		panic("handler panicked")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not executed")
	}
}
