package fitbit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type sequenceSource struct {
	tokens []*oauth2.Token
	err    error
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	tok := s.tokens[s.i]
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSource(t *testing.T) {
	t.Parallel()

	base := &sequenceSource{tokens: []*oauth2.Token{
		{AccessToken: "a"},
		{AccessToken: "a"},
		{AccessToken: "b"},
		{AccessToken: "b"},
	}}
	store := &recordingTokenStore{}
	src := NewPersistingTokenSource(context.Background(), "u1", base, store, &oauth2.Token{AccessToken: "a"})

	for range 4 {
		_, err := src.Token()
		require.NoError(t, err)
	}

	require.Len(t, store.tokens, 1)
	assert.Equal(t, "b", store.tokens[0].AccessToken)
}

func TestPersistingTokenSource_StoreFailureStillReturnsToken(t *testing.T) {
	t.Parallel()

	store := &recordingTokenStore{err: errors.New("disk full")}
	src := NewPersistingTokenSource(context.Background(), "u1",
		&sequenceSource{tokens: []*oauth2.Token{{AccessToken: "new"}}}, store, nil)

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)

	// The write is retried on the next call
	_, err = src.Token()
	require.NoError(t, err)
	assert.Len(t, store.tokens, 2)
}

func TestPersistingTokenSource_BaseError(t *testing.T) {
	t.Parallel()

	boom := errors.New("invalid_grant")
	src := NewPersistingTokenSource(context.Background(), "u1", &sequenceSource{err: boom}, &recordingTokenStore{}, nil)

	_, err := src.Token()
	assert.ErrorIs(t, err, boom)
}
