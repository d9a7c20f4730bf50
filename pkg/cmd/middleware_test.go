package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(name string, trace *[]string) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, inv *Invocation) error {
			*trace = append(*trace, name)
			return next.Run(ctx, inv)
		})
	}
}

func TestApply_FirstIsOutermost(t *testing.T) {
	var trace []string
	h := Apply(HandlerFunc(func(ctx context.Context, inv *Invocation) error {
		trace = append(trace, "handler")
		return nil
	}), tag("a", &trace), nil, tag("b", &trace))

	require.NoError(t, h.Run(context.Background(), &Invocation{}))
	assert.Equal(t, []string{"a", "b", "handler"}, trace)
}

func TestChain_MatchesApply(t *testing.T) {
	var trace []string
	h := Chain(tag("outer", &trace), tag("inner", &trace))(HandlerFunc(func(context.Context, *Invocation) error {
		return errors.New("boom")
	}))

	err := h.Run(context.Background(), &Invocation{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

func TestInvocation_Arg(t *testing.T) {
	inv := &Invocation{Args: []string{"setup", "#general"}}
	assert.Equal(t, "setup", inv.Arg(0))
	assert.Equal(t, "#general", inv.Arg(1))
	assert.Equal(t, "", inv.Arg(2))
	assert.Equal(t, "", inv.Arg(-1))

	var nilInv *Invocation
	assert.Equal(t, "", nilInv.Arg(0))
}
