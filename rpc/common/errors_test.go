package common

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("txn 5: %w", &Error{Kind: ErrKindTransaction, Msg: ErrStartTsMismatch.Msg, Err: errors.New("5 != 6")})
	require.ErrorIs(t, wrapped, ErrStartTsMismatch)
	require.NotErrorIs(t, wrapped, ErrTxnFinished)
	require.True(t, IsKind(wrapped, ErrKindTransaction))
	require.False(t, IsKind(errors.New("plain"), ErrKindTransaction))

	err := WrapError(ErrKindPool, context.DeadlineExceeded, "no connection available")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, "Pool error: no connection available: context deadline exceeded", err.Error())
}

func TestStatusError(t *testing.T) {
	err := WrapError(ErrKindStatus, NewStatusError(StatusAborted, "transaction has been aborted. Please retry"), "CommitOrAbort rejected")
	require.True(t, IsAborted(err))
	require.True(t, IsKind(err, ErrKindStatus))
	require.False(t, IsAborted(NewStatusError(StatusInternal, "oops")))
	require.Equal(t, "status Aborted: x", NewStatusError(StatusAborted, "x").Error())
}

func TestMutationString(t *testing.T) {
	mu := NewMutation()
	mu.SetSetNquads(`_:a <name> "alice" .`)
	mu.SetCond("@if(eq(len(u), 0))")
	mu.Set = []*NQuad{{Subject: "_:a", Predicate: "name", ObjectValue: "alice", Lang: "en"}, nil}
	mu.Del = []*NQuad{{Subject: "0x1", Predicate: "friend", ObjectId: "0x2"}}

	s := mu.String()
	require.Contains(t, s, `set_nquads: _:a <name> "alice" .`)
	require.Contains(t, s, `set: [<_:a> <name> "alice"@en]`)
	require.Contains(t, s, `del: [<0x1> <friend> 0x2]`)
	require.Contains(t, s, "cond: @if(eq(len(u), 0))")
	require.Contains(t, s, "commit_now: false")
}
