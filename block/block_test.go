package block

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/metric"
	"github.com/c360/pipekit/socket"
	"github.com/c360/pipekit/task"
)

func doublerTask(t *testing.T) *task.Func {
	t.Helper()
	tk, err := task.NewFunc("doubler",
		[]task.Endpoint{
			task.Input("in", task.Int32, 1),
			task.Output("out", task.Int32, 1),
		},
		func(b *task.Base) error {
			in, err := task.Slice[int32](b, "in")
			if err != nil {
				return err
			}
			out, err := task.Slice[int32](b, "out")
			if err != nil {
				return err
			}
			out[0] = in[0] * 2
			return nil
		})
	require.NoError(t, err)
	return tk
}

func incrementerTask(t *testing.T) *task.Func {
	t.Helper()
	tk, err := task.NewFunc("incrementer",
		[]task.Endpoint{
			task.Input("in", task.Int32, 1),
			task.Output("out", task.Int32, 1),
		},
		func(b *task.Base) error {
			in, err := task.Slice[int32](b, "in")
			if err != nil {
				return err
			}
			out, err := task.Slice[int32](b, "out")
			if err != nil {
				return err
			}
			out[0] = in[0] + 1
			return nil
		})
	require.NoError(t, err)
	return tk
}

// feed writes values into an unbound input socket, spinning on backpressure.
func feed(t *testing.T, s socket.Socket, values []int32) {
	t.Helper()
	buf := s.(*socket.Buffered[int32])
	for _, v := range values {
		for !buf.Write([]int32{v}) {
			if buf.Stopped() {
				t.Fatal("socket stopped while feeding")
			}
			runtime.Gosched()
		}
	}
}

// collect reads n items from an unbound output socket, spinning until each
// arrives.
func collect(t *testing.T, s socket.Socket, n int) []int32 {
	t.Helper()
	buf := s.(*socket.Buffered[int32])
	out := make([]int32, 0, n)
	item := make([]int32, 1)
	deadline := time.Now().Add(5 * time.Second)
	for len(out) < n {
		if buf.Read(item) {
			out = append(out, item[0])
			continue
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out collecting outputs, got %d of %d", len(out), n)
		}
		runtime.Gosched()
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name       string
		tpl        task.Task
		nThreads   int
		bufferSize int
		wantMsg    string
	}{
		{
			name:       "nil task",
			tpl:        nil,
			nThreads:   1,
			bufferSize: 1,
		},
		{
			name:       "zero threads",
			tpl:        doublerTask(t),
			nThreads:   0,
			bufferSize: 1,
			wantMsg:    "'n_threads' has to be strictly positive ('n_threads' = 0)",
		},
		{
			name:       "negative threads",
			tpl:        doublerTask(t),
			nThreads:   -2,
			bufferSize: 1,
			wantMsg:    "'n_threads' has to be strictly positive ('n_threads' = -2)",
		},
		{
			name:       "buffer smaller than threads",
			tpl:        doublerTask(t),
			nThreads:   4,
			bufferSize: 3,
			wantMsg:    "'buffer_size' has to be greater or equal to 'n_threads' ('buffer_size' = 3, 'n_threads' = 4)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tpl, tt.nThreads, tt.bufferSize)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNewClonesPerThread(t *testing.T) {
	b, err := New(doublerTask(t), 3, 4)
	require.NoError(t, err)

	assert.Equal(t, "doubler", b.Name())
	assert.Equal(t, 3, b.Threads())
	assert.Equal(t, 4, b.BufferSize())
	assert.Equal(t, []string{"in"}, b.Inputs())
	assert.Equal(t, []string{"out"}, b.Outputs())

	// Replica storages are independent.
	b.replicas[0].Storage("in").([]int32)[0] = 11
	assert.Equal(t, int32(0), b.replicas[1].Storage("in").([]int32)[0])
}

func TestEndpointLookup(t *testing.T) {
	b, err := New(doublerTask(t), 1, 1)
	require.NoError(t, err)

	_, err = b.Input("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = b.Output("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	in, err := b.Input("in")
	require.NoError(t, err)
	assert.Equal(t, task.DirectionInput, in.Direction())
}

func TestBindErrors(t *testing.T) {
	src, err := New(doublerTask(t), 1, 1)
	require.NoError(t, err)
	dst, err := New(incrementerTask(t), 1, 1)
	require.NoError(t, err)

	assert.True(t, errors.IsInvalid(src.Bind("out", nil, "in")))
	assert.True(t, errors.IsNotFound(src.Bind("missing", dst, "in")))
	assert.True(t, errors.IsNotFound(src.Bind("out", dst, "missing")))

	require.NoError(t, src.Bind("out", dst, "in"))

	err = src.Bind("out", dst, "in")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyBound)
}

func TestBindTypeMismatch(t *testing.T) {
	floatSink, err := task.NewFunc("sink",
		[]task.Endpoint{task.Input("in", task.Float64, 1)},
		func(*task.Base) error { return nil })
	require.NoError(t, err)

	src, err := New(doublerTask(t), 1, 1)
	require.NoError(t, err)
	dst, err := New(floatSink, 1, 1)
	require.NoError(t, err)

	err = src.Bind("out", dst, "in")
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))

	// The failed bind must not mark the input as bound.
	assert.False(t, dst.boundInputs["in"])
}

func TestDoublerPreservesFeedOrder(t *testing.T) {
	b, err := New(doublerTask(t), 2, 4)
	require.NoError(t, err)

	in, err := b.Input("in")
	require.NoError(t, err)
	out, err := b.Output("out")
	require.NoError(t, err)

	var stop atomic.Bool
	require.NoError(t, b.Run(&stop))

	feed(t, in, []int32{3, 4, 5, 6})
	got := collect(t, out, 4)

	stop.Store(true)
	require.NoError(t, b.Join())

	assert.Equal(t, []int32{6, 8, 10, 12}, got)
}

func TestStopTerminatesIdleWorkers(t *testing.T) {
	b, err := New(doublerTask(t), 2, 2)
	require.NoError(t, err)

	var stop atomic.Bool
	require.NoError(t, b.Run(&stop))
	assert.True(t, b.Running())

	// Workers are spinning on an empty input; the flag must release them.
	stop.Store(true)
	require.NoError(t, b.Join())
	assert.False(t, b.Running())
}

func TestRunStateErrors(t *testing.T) {
	b, err := New(doublerTask(t), 1, 1)
	require.NoError(t, err)

	err = b.Join()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotStarted)

	var stop atomic.Bool
	require.NoError(t, b.Run(&stop))

	err = b.Run(&stop)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	err = b.Reset()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	stop.Store(true)
	require.NoError(t, b.Join())
}

func TestExecErrorReportedByJoin(t *testing.T) {
	failing, err := task.NewFunc("failing",
		[]task.Endpoint{
			task.Input("in", task.Int32, 1),
			task.Output("out", task.Int32, 1),
		},
		func(b *task.Base) error {
			in, err := task.Slice[int32](b, "in")
			if err != nil {
				return err
			}
			if in[0] < 0 {
				return fmt.Errorf("negative sample %d", in[0])
			}
			out, err := task.Slice[int32](b, "out")
			if err != nil {
				return err
			}
			out[0] = in[0]
			return nil
		})
	require.NoError(t, err)

	b, err := New(failing, 1, 2)
	require.NoError(t, err)

	in, err := b.Input("in")
	require.NoError(t, err)
	out, err := b.Output("out")
	require.NoError(t, err)

	var stop atomic.Bool
	require.NoError(t, b.Run(&stop))

	feed(t, in, []int32{1, -5, 2})
	// Failed iterations still push their output to keep the loop moving.
	got := collect(t, out, 3)
	assert.Len(t, got, 3)

	stop.Store(true)
	err = b.Join()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative sample -5")
}

func TestResetAllowsRerun(t *testing.T) {
	b, err := New(doublerTask(t), 2, 4)
	require.NoError(t, err)

	for run := 0; run < 2; run++ {
		var stop atomic.Bool
		require.NoError(t, b.Run(&stop))

		in, err := b.Input("in")
		require.NoError(t, err)
		out, err := b.Output("out")
		require.NoError(t, err)

		feed(t, in, []int32{3, 4, 5, 6})
		got := collect(t, out, 4)

		stop.Store(true)
		require.NoError(t, b.Join())
		assert.Equal(t, []int32{6, 8, 10, 12}, got, "run %d", run)

		require.NoError(t, b.Reset())
	}
}

func TestBoundBlocksEndToEnd(t *testing.T) {
	src, err := New(doublerTask(t), 2, 4)
	require.NoError(t, err)
	dst, err := New(incrementerTask(t), 1, 4)
	require.NoError(t, err)

	require.NoError(t, src.Bind("out", dst, "in"))

	in, err := src.Input("in")
	require.NoError(t, err)
	out, err := dst.Output("out")
	require.NoError(t, err)

	var stop atomic.Bool
	require.NoError(t, src.Run(&stop))
	require.NoError(t, dst.Run(&stop))

	feed(t, in, []int32{3, 4, 5, 6})
	got := collect(t, out, 4)

	stop.Store(true)
	require.NoError(t, src.Join())
	require.NoError(t, dst.Join())

	assert.Equal(t, []int32{7, 9, 11, 13}, got)
}

func TestBlockMetrics(t *testing.T) {
	registry := metric.NewRegistry()

	b, err := New(doublerTask(t), 1, 2, WithMetrics(registry))
	require.NoError(t, err)

	in, err := b.Input("in")
	require.NoError(t, err)
	out, err := b.Output("out")
	require.NoError(t, err)

	var stop atomic.Bool
	require.NoError(t, b.Run(&stop))

	feed(t, in, []int32{1, 2})
	collect(t, out, 2)

	stop.Store(true)
	require.NoError(t, b.Join())

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["pipekit_block_iterations_total"])
	assert.True(t, names["pipekit_block_exec_duration_seconds"])
	assert.True(t, names["pipekit_socket_pushes_total"], "block wires socket metrics too")
}
