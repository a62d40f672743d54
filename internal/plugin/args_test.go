package plugin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodescout/nodescout/internal/core"
)

type testArgs struct {
	ExpKernel  []string      `mapstructure:"exp_kernel"`
	RegexMatch bool          `mapstructure:"regex_match"`
	MinUptime  time.Duration `mapstructure:"min_uptime"`
	Ratio      float64       `mapstructure:"ratio" validate:"omitempty,gt=0,lte=1"`
}

func TestDecodeArgs_RejectsUnknownKeys(t *testing.T) {
	var args testArgs
	err := DecodeArgs(map[string]any{"exp_kernl": "5.15.0"}, &args)
	require.Error(t, err)

	var domainErr *core.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, core.ErrCatValidation, domainErr.Category)
}

func TestDecodeArgs_ScalarStringBecomesSlice(t *testing.T) {
	var args testArgs
	err := DecodeArgs(map[string]any{"exp_kernel": "5.15.0-89-generic"}, &args)
	require.NoError(t, err)
	assert.Equal(t, []string{"5.15.0-89-generic"}, args.ExpKernel)
}

func TestDecodeArgs_DurationFromString(t *testing.T) {
	var args testArgs
	err := DecodeArgs(map[string]any{"min_uptime": "30m"}, &args)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, args.MinUptime)
}

func TestDecodeArgs_ValidateTagsEnforced(t *testing.T) {
	var args testArgs
	err := DecodeArgs(map[string]any{"ratio": 1.5}, &args)
	require.Error(t, err)
}

func TestDecodeArgs_NilArgsIsEmpty(t *testing.T) {
	var args testArgs
	require.NoError(t, DecodeArgs(nil, &args))
	assert.Empty(t, args.ExpKernel)
}

func TestEncodeArgs_RoundTrip(t *testing.T) {
	in := testArgs{
		ExpKernel:  []string{"6.8.0"},
		RegexMatch: true,
		Ratio:      0.5,
	}
	raw, err := EncodeArgs(in)
	require.NoError(t, err)

	var out testArgs
	require.NoError(t, DecodeArgs(raw, &out))
	assert.Equal(t, in.ExpKernel, out.ExpKernel)
	assert.Equal(t, in.RegexMatch, out.RegexMatch)
	assert.Equal(t, in.Ratio, out.Ratio)
}
