package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts := newOptions()

	assert.Equal(t, DefaultTimeout, opts.timeout)
	assert.Equal(t, DefaultInterval, opts.interval)
	assert.Equal(t, WithoutJitter, opts.jitter)
	assert.Equal(t, time.Duration(0), opts.attemptTimeout)
	assert.Nil(t, opts.retryable, "probe errors are fatal by default")
	assert.Equal(t, FixedInterval(DefaultInterval), opts.strategy)
	require.NoError(t, opts.validate())
}

func TestNewOptions_FixedStrategyFollowsInterval(t *testing.T) {
	t.Parallel()

	opts := newOptions(WithInterval(5 * time.Second))

	assert.Equal(t, FixedInterval(5*time.Second), opts.strategy)
}

func TestNewOptions_StrategyWinsOverInterval(t *testing.T) {
	t.Parallel()

	strategy := ExpInterval{Base: time.Second, Max: time.Minute, Factor: 2.0}
	opts := newOptions(WithInterval(5*time.Second), WithStrategy(strategy))

	assert.Equal(t, strategy, opts.strategy)
}

func TestNewOptions_NilOptionIgnored(t *testing.T) {
	t.Parallel()

	opts := newOptions(nil, WithTimeout(time.Minute))

	assert.Equal(t, time.Minute, opts.timeout)
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero timeout", []Option{WithTimeout(0)}, true},
		{"negative timeout", []Option{WithTimeout(-time.Second)}, true},
		{"zero interval", []Option{WithInterval(0)}, true},
		{"negative interval", []Option{WithInterval(-time.Second)}, true},
		{"negative attempt timeout", []Option{WithAttemptTimeout(-time.Second)}, true},
		{"small timeout below interval", []Option{WithTimeout(time.Millisecond)}, false},
		{"custom everything", []Option{
			WithTimeout(time.Minute),
			WithInterval(time.Second),
			WithJitter(EqualJitter),
			WithAttemptTimeout(10 * time.Second),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := newOptions(tt.opts...).validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
