package schemaguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRunFiresHooks(t *testing.T) {
	cfg, conn := newHookedProject(t, "(1), (2)")

	builder, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer builder.Close()

	built, err := builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, built)

	// The build task fires hooks around the build, in declaration order.
	assert.Equal(t, []string{"start", "end"}, hookLogPhases(t, conn))

	// The model is materialized as a view over the seed data.
	var count int
	require.NoError(t, conn.Get(&count, "select count(*) from my_model"))
	assert.Equal(t, 2, count)
}

func TestBuilderRunIsIdempotent(t *testing.T) {
	cfg, conn := newHookedProject(t, "(1)")

	builder, err := NewBuilder(cfg)
	require.NoError(t, err)
	defer builder.Close()

	for i := 0; i < 2; i++ {
		built, err := builder.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, built)
	}
	assert.Equal(t, []string{"start", "end", "start", "end"}, hookLogPhases(t, conn))
}
