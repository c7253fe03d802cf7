package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismail180205/HippoMind/internal/llm"
	"github.com/ismail180205/HippoMind/internal/llm/mock"
)

func TestCachedGenerator_CachesLabels(t *testing.T) {
	gen := mock.NewGenerator()
	cached := llm.NewCachedGenerator(gen, time.Minute)
	ctx := context.Background()

	first, err := cached.LabelCluster(ctx, "flood exposure excerpts")
	require.NoError(t, err)

	second, err := cached.LabelCluster(ctx, "flood exposure excerpts")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.LabelCalls)
}

func TestCachedGenerator_DistinctTextsMiss(t *testing.T) {
	gen := mock.NewGenerator()
	cached := llm.NewCachedGenerator(gen, time.Minute)
	ctx := context.Background()

	_, err := cached.LabelCluster(ctx, "flood excerpts")
	require.NoError(t, err)
	_, err = cached.LabelCluster(ctx, "health excerpts")
	require.NoError(t, err)

	assert.Equal(t, 2, gen.LabelCalls)
}

func TestCachedGenerator_ErrorsNotCached(t *testing.T) {
	gen := mock.NewGenerator()
	fail := true
	gen.LabelFunc = func(ctx context.Context, text string) (string, error) {
		if fail {
			return "", errors.New("model down")
		}
		return "recovered label", nil
	}

	cached := llm.NewCachedGenerator(gen, time.Minute)
	ctx := context.Background()

	_, err := cached.LabelCluster(ctx, "same text")
	require.Error(t, err)

	fail = false
	label, err := cached.LabelCluster(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, "recovered label", label)
	assert.Equal(t, 2, gen.LabelCalls)
}

func TestCachedGenerator_DelegatesOtherCalls(t *testing.T) {
	gen := mock.NewGenerator()
	cached := llm.NewCachedGenerator(gen, time.Minute)
	ctx := context.Background()

	expanded, err := cached.ExpandQuery(ctx, "flood note")
	require.NoError(t, err)
	assert.Equal(t, "expanded: flood note", expanded)

	q, err := cached.FollowupQuestion(ctx, map[string]string{"a.pdf": "summary"}, nil, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "question 1 of 3?", q)
}
