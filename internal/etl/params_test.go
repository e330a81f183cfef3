package etl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJobParameters(t *testing.T) {
	args := []string{
		"--JOB_ID", "j_123",
		"--SOURCE_BUCKET", "landing",
		"--job-bookmark-option", "job-bookmark-disable",
		"--SOURCE_KEY=uploads/2024/a.jsonl",
		"--OUTPUT_BUCKET", "curated",
		"--TempDir", "s3://tmp/",
	}
	params, err := ResolveJobParameters(args)
	require.NoError(t, err)
	assert.Equal(t, JobParameters{
		SourceBucket: "landing",
		SourceKey:    "uploads/2024/a.jsonl",
		OutputBucket: "curated",
	}, params)
}

func TestResolveJobParameters_Missing(t *testing.T) {
	_, err := ResolveJobParameters([]string{"--SOURCE_KEY", "k"})
	require.Error(t, err)

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{ParamSourceBucket, ParamOutputBucket}, cerr.Missing)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestResolveJobParameters_EmptyValueCountsAsPresent(t *testing.T) {
	params, err := ResolveJobParameters([]string{"--SOURCE_BUCKET=", "--SOURCE_KEY=k", "--OUTPUT_BUCKET=o"})
	require.NoError(t, err)
	assert.Equal(t, "", params.SourceBucket)
}

func TestResolveJobParameters_DanglingFlag(t *testing.T) {
	_, err := ResolveJobParameters([]string{"--SOURCE_BUCKET", "b", "--SOURCE_KEY", "k", "--OUTPUT_BUCKET"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestJobParametersArgsRoundTrip(t *testing.T) {
	want := JobParameters{SourceBucket: "a", SourceKey: "b/c", OutputBucket: "d"}
	var args []string
	for k, v := range want.Args() {
		args = append(args, k, v)
	}
	got, err := ResolveJobParameters(args)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
