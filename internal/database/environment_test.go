package database

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct{}

func (fakeSession) Prepare(context.Context, string) (Statement, error) { return nil, nil }
func (fakeSession) Ping(context.Context) error                         { return nil }
func (fakeSession) Close(context.Context) error                        { return nil }

type fakeDriver struct {
	name   string
	prefix string
	got    *Config
	hasDL  bool
	err    error
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) Accepts(connStr string) (string, bool) {
	return TrimPrefix(connStr, d.prefix)
}

func (d *fakeDriver) Open(ctx context.Context, cfg *Config) (Session, error) {
	d.got = cfg
	_, d.hasDL = ctx.Deadline()
	if d.err != nil {
		return nil, d.err
	}
	return fakeSession{}, nil
}

func TestNewEnvironment_Validation(t *testing.T) {
	_, err := NewEnvironment(logger.Nop(), 0)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	a := &fakeDriver{name: "a", prefix: "a://"}
	_, err = NewEnvironment(logger.Nop(), 0, a, a)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestEnvironment_RefCounting(t *testing.T) {
	env, err := NewEnvironment(nil, 0, &fakeDriver{name: "a", prefix: "a://"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Refs())

	require.NoError(t, env.Acquire())
	assert.Equal(t, 2, env.Refs())

	env.Release()
	assert.False(t, env.Closed())

	env.Release()
	assert.True(t, env.Closed())

	err = env.Acquire()
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))

	env.Release()
	assert.True(t, env.Closed())
}

func TestEnvironment_Resolve(t *testing.T) {
	a := &fakeDriver{name: "a", prefix: "a://"}
	b := &fakeDriver{name: "b", prefix: "b://"}
	env, err := NewEnvironment(logger.Nop(), time.Second, a, b)
	require.NoError(t, err)

	d, cfg, err := env.Resolve("b://target")
	require.NoError(t, err)
	assert.Equal(t, "b", d.Name())
	assert.Equal(t, "target", cfg.DSN)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)

	for _, cs := range []string{"", "c://x", "a:/x"} {
		_, _, err := env.Resolve(cs)
		require.Error(t, err, cs)
		assert.True(t, errs.IsConnectionFailed(err), cs)
	}
}

func TestEnvironment_OpenAppliesTimeout(t *testing.T) {
	a := &fakeDriver{name: "a", prefix: "a://"}
	env, err := NewEnvironment(logger.Nop(), time.Minute, a)
	require.NoError(t, err)

	sess, backend, err := env.Open(context.Background(), "a://db")
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.Equal(t, "a", backend)
	assert.True(t, a.hasDL)
	assert.Equal(t, "db", a.got.DSN)
}

func TestEnvironment_OpenNoTimeout(t *testing.T) {
	a := &fakeDriver{name: "a", prefix: "a://"}
	env, err := NewEnvironment(logger.Nop(), 0, a)
	require.NoError(t, err)

	_, _, err = env.Open(context.Background(), "a://db")
	require.NoError(t, err)
	assert.False(t, a.hasDL)
}

func TestEnvironment_OpenFailures(t *testing.T) {
	a := &fakeDriver{name: "a", prefix: "a://", err: ErrConnection("refused", nil)}
	env, err := NewEnvironment(logger.Nop(), 0, a)
	require.NoError(t, err)

	_, backend, err := env.Open(context.Background(), "a://db")
	require.Error(t, err)
	assert.Equal(t, "a", backend)
	assert.True(t, errs.IsConnectionFailed(err))

	env.Release()
	_, _, err = env.Open(context.Background(), "a://db")
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestIsContextErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, IsContextErr(ctx.Err()))
	assert.True(t, IsContextErr(ErrTimeout("wrapped", context.DeadlineExceeded)))
	assert.False(t, IsContextErr(ErrQuery("plain", nil)))
}
