package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeon/opticore/model"
	"github.com/lumeon/opticore/service/buffer"
	"github.com/lumeon/opticore/service/crossbar"
)

func newTestLoopback(config Config) *Loopback {
	meshConfig := crossbar.DefaultConfig()
	meshConfig.NoiseSigma = 0 // exact arithmetic for transfer assertions
	return NewLoopback(config, crossbar.New(meshConfig), zerolog.Nop())
}

func stageIdentity(t *testing.T, n int) (*buffer.Pool, *buffer.Buffer, *buffer.Buffer) {
	t.Helper()
	pool := buffer.NewPool(1)
	in, out, err := pool.Allocate(buffer.Shape{Rows: n, Cols: n})
	require.NoError(t, err)
	copy(in.Data, model.Identity(n).Data)
	return pool, in, out
}

func TestLoopbackTransfer(t *testing.T) {
	ctx := context.Background()
	channel := newTestLoopback(Config{Latency: time.Millisecond})
	pool, in, out := stageIdentity(t, 4)

	require.NoError(t, channel.Transfer(ctx, in, out))
	require.NoError(t, channel.Wait(ctx))

	result := out.Matrix()
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, float64(result.At(i, i)), 1e-6)
	}
	require.NoError(t, pool.Release(in))
	require.NoError(t, pool.Release(out))
}

func TestLoopbackFaultInjection(t *testing.T) {
	ctx := context.Background()
	channel := newTestLoopback(Config{
		Latency:        time.Millisecond,
		FaultDirection: DirectionReceive,
		FaultReason:    "CRC mismatch on readout stream",
	})
	pool, in, out := stageIdentity(t, 2)
	defer pool.Release(in)
	defer pool.Release(out)

	require.NoError(t, channel.Transfer(ctx, in, out))
	err := channel.Wait(ctx)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, DirectionReceive, fault.Direction)
}

func TestLoopbackDetachedRejectsTransfer(t *testing.T) {
	ctx := context.Background()
	channel := newTestLoopback(DefaultConfig())
	require.NoError(t, channel.ReleaseTransfer(ctx))
	pool, in, out := stageIdentity(t, 2)
	defer pool.Release(in)
	defer pool.Release(out)
	assert.Error(t, channel.Transfer(ctx, in, out))
}

func TestLoopbackWaitHonoursContext(t *testing.T) {
	channel := newTestLoopback(DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, channel.Wait(ctx))
}
