package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save(ctx, "abc"))
	tok, _ = s.Load(ctx)
	assert.Equal(t, "abc", tok)

	require.Error(t, s.Save(ctx, ""))
	require.NoError(t, s.Delete(ctx))
	tok, _ = s.Load(ctx)
	assert.Empty(t, tok)
}
