package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/teslashibe/go-voiceloop/internal/log"
)

func TestChainChat(t *testing.T) {
	errPrimary := errors.New("primary down")
	errSecondary := errors.New("secondary down")

	tests := []struct {
		name      string
		providers []*Mock
		want      string
		wantErrs  []error
	}{
		{
			name:      "primary answers",
			providers: []*Mock{NewMock("hosted"), NewMock("local")},
			want:      "hosted",
		},
		{
			name:      "falls back",
			providers: []*Mock{WithError(errPrimary), NewMock("local")},
			want:      "local",
		},
		{
			name:      "all fail",
			providers: []*Mock{WithError(errPrimary), WithError(errSecondary)},
			wantErrs:  []error{errPrimary, errSecondary},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := make([]Provider, len(tt.providers))
			for i, m := range tt.providers {
				ps[i] = m
			}
			chain, err := NewChainWithLogger(log.Discard(), ps...)
			if err != nil {
				t.Fatal(err)
			}

			resp, err := chain.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
			if tt.wantErrs != nil {
				var chainErr *ChainError
				if !errors.As(err, &chainErr) || len(chainErr.Errors) != len(tt.wantErrs) {
					t.Fatalf("err = %v, want ChainError with %d causes", err, len(tt.wantErrs))
				}
				for _, want := range tt.wantErrs {
					if !errors.Is(err, want) {
						t.Errorf("err does not match %v", want)
					}
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resp.Message.Content != tt.want {
				t.Errorf("content = %q, want %q", resp.Message.Content, tt.want)
			}
		})
	}
}

func TestChainHealth(t *testing.T) {
	down := errors.New("down")

	chain, _ := NewChain(WithError(down), NewMock("ok"))
	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("one healthy provider should be enough: %v", err)
	}

	chain, _ = NewChain(WithError(down), WithError(down))
	if err := chain.Health(context.Background()); !errors.Is(err, down) {
		t.Errorf("Health() = %v, want %v", err, down)
	}
}

func TestChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("NewChain() = %v, want ErrProviderUnavailable", err)
	}
}

func TestChainClose(t *testing.T) {
	a, b := NewMock("a"), NewMock("b")
	chain, _ := NewChain(a, b)
	if err := chain.Close(); err != nil {
		t.Fatal(err)
	}
	if !a.Closed() || !b.Closed() {
		t.Error("every provider should be closed")
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := NewMock("")
	first.ChatFunc = func(context.Context, *ChatRequest) (*ChatResponse, error) {
		cancel()
		return nil, errors.New("aborted")
	}
	second := NewMock("never")

	chain, _ := NewChainWithLogger(log.Discard(), first, second)
	if _, err := chain.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if second.Chats() != 0 {
		t.Error("fallback tried after cancellation")
	}
}
