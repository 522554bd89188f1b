package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pipekit/errors"
	"github.com/c360/pipekit/metric"
	"github.com/c360/pipekit/task"
)

func noop(*task.Base) error { return nil }

// newReplicas builds n independent replicas of a task with the given
// endpoints.
func newReplicas(t *testing.T, n int, eps ...task.Endpoint) []task.Task {
	t.Helper()
	tpl, err := task.NewFunc("test-task", eps, noop)
	require.NoError(t, err)

	replicas := make([]task.Task, n)
	for i := range replicas {
		replicas[i] = tpl.Clone()
	}
	return replicas
}

func TestNewDispatchesAllDatatypes(t *testing.T) {
	datatypes := []task.Datatype{
		task.Int8, task.Int16, task.Int32, task.Int64, task.Float32, task.Float64,
	}

	for _, dt := range datatypes {
		t.Run(dt.String(), func(t *testing.T) {
			replicas := newReplicas(t, 2, task.Input("in", dt, 4))
			s, err := New(task.Input("in", dt, 4), replicas, 2)
			require.NoError(t, err)
			assert.Equal(t, dt, s.Datatype())
			assert.Equal(t, 4, s.Count())
			assert.Equal(t, 2, s.Capacity())
			assert.Equal(t, task.DirectionInput, s.Direction())
		})
	}
}

func TestNewCapacityInvariant(t *testing.T) {
	replicas := newReplicas(t, 4, task.Input("in", task.Int32, 1))

	_, err := New(task.Input("in", task.Int32, 1), replicas, 3)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = New(task.Input("in", task.Int32, 1), replicas, 4)
	assert.NoError(t, err)
}

func TestNewRequiresReplicas(t *testing.T) {
	_, err := New(task.Input("in", task.Int32, 1), nil, 4)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

// wrongStorageTask violates the Task storage contract on purpose.
type wrongStorageTask struct{}

func (wrongStorageTask) Name() string { return "broken" }
func (wrongStorageTask) Endpoints() []task.Endpoint {
	return []task.Endpoint{task.Input("in", task.Int32, 1)}
}
func (wrongStorageTask) Clone() task.Task   { return wrongStorageTask{} }
func (wrongStorageTask) Storage(string) any { return make([]int64, 1) }
func (wrongStorageTask) Exec() error        { return nil }

func TestNewRejectsMismatchedStorage(t *testing.T) {
	_, err := New(task.Input("in", task.Int32, 1), []task.Task{wrongStorageTask{}}, 1)
	require.Error(t, err)
	assert.True(t, errors.IsUnreachable(err))
}

func TestRoundTripFIFO(t *testing.T) {
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))
	s, err := New(task.Input("in", task.Int32, 1), replicas, 8)
	require.NoError(t, err)

	buf := s.(*Buffered[int32])
	values := []int32{10, 20, 30, 40, 50}
	for _, v := range values {
		require.True(t, buf.Write([]int32{v}))
	}

	storage := replicas[0].Storage("in").([]int32)
	for _, want := range values {
		require.True(t, s.Pop(0))
		assert.Equal(t, want, storage[0])
	}

	assert.False(t, s.Pop(0), "buffer drained")
}

func TestThreadTurnGating(t *testing.T) {
	replicas := newReplicas(t, 2, task.Output("out", task.Int32, 1))
	s, err := New(task.Output("out", task.Int32, 1), replicas, 4)
	require.NoError(t, err)

	replicas[0].Storage("out").([]int32)[0] = 100
	replicas[1].Storage("out").([]int32)[0] = 200

	// Replica 1 finished first, but item 0 belongs to replica 0.
	assert.False(t, s.Push(1))
	require.True(t, s.Push(0))
	require.True(t, s.Push(1))

	buf := s.(*Buffered[int32])
	item := make([]int32, 1)
	require.True(t, buf.Read(item))
	assert.Equal(t, int32(100), item[0])
	require.True(t, buf.Read(item))
	assert.Equal(t, int32(200), item[0])
}

func TestBackpressure(t *testing.T) {
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))
	s, err := New(task.Input("in", task.Int32, 1), replicas, 1)
	require.NoError(t, err)

	buf := s.(*Buffered[int32])
	require.True(t, buf.Write([]int32{1}))
	assert.False(t, buf.Write([]int32{2}), "full buffer rejects writes")

	require.True(t, s.Pop(0))
	assert.True(t, buf.Write([]int32{2}), "space freed after pop")
}

func TestStopAndReset(t *testing.T) {
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))
	s, err := New(task.Input("in", task.Int32, 1), replicas, 2)
	require.NoError(t, err)

	buf := s.(*Buffered[int32])
	require.True(t, buf.Write([]int32{7}))

	s.Stop()
	s.Stop() // idempotent
	assert.True(t, s.Stopped())
	assert.False(t, s.Pop(0))
	assert.False(t, s.Push(0))
	assert.False(t, buf.Write([]int32{8}))

	s.Reset()
	assert.False(t, s.Stopped())
	assert.False(t, s.Pop(0), "reset empties the buffer")
	require.True(t, buf.Write([]int32{9}))
	require.True(t, s.Pop(0))
	assert.Equal(t, int32(9), replicas[0].Storage("in").([]int32)[0])
}

func TestResetRewindsTurn(t *testing.T) {
	replicas := newReplicas(t, 2, task.Output("out", task.Int32, 1))
	s, err := New(task.Output("out", task.Int32, 1), replicas, 2)
	require.NoError(t, err)

	require.True(t, s.Push(0))
	s.Reset()

	// After reset the first turn belongs to replica 0 again.
	assert.False(t, s.Push(1))
	assert.True(t, s.Push(0))
}

func TestBindDelivery(t *testing.T) {
	producers := newReplicas(t, 1, task.Output("out", task.Int32, 1))
	consumers := newReplicas(t, 1, task.Input("in", task.Int32, 1))

	out, err := New(task.Output("out", task.Int32, 1), producers, 2)
	require.NoError(t, err)
	in, err := New(task.Input("in", task.Int32, 1), consumers, 2)
	require.NoError(t, err)

	require.NoError(t, out.Bind(in))

	producers[0].Storage("out").([]int32)[0] = 42
	require.True(t, out.Push(0))

	require.True(t, in.Pop(0))
	assert.Equal(t, int32(42), consumers[0].Storage("in").([]int32)[0])
	assert.False(t, in.Pop(0), "items are delivered exactly once")
}

func TestBindTypeMismatch(t *testing.T) {
	producers := newReplicas(t, 1, task.Output("out", task.Int32, 1))
	consumers := newReplicas(t, 1, task.Input("in", task.Float64, 1))

	out, err := New(task.Output("out", task.Int32, 1), producers, 2)
	require.NoError(t, err)
	in, err := New(task.Input("in", task.Float64, 1), consumers, 2)
	require.NoError(t, err)

	err = out.Bind(in)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))

	// Both sockets stay independent after the failed bind.
	producers[0].Storage("out").([]int32)[0] = 5
	require.True(t, out.Push(0))
	assert.False(t, in.Pop(0), "destination must not see source data")
}

func TestBindCountMismatch(t *testing.T) {
	producers := newReplicas(t, 1, task.Output("out", task.Int32, 2))
	consumers := newReplicas(t, 1, task.Input("in", task.Int32, 3))

	out, err := New(task.Output("out", task.Int32, 2), producers, 2)
	require.NoError(t, err)
	in, err := New(task.Input("in", task.Int32, 3), consumers, 2)
	require.NoError(t, err)

	err = out.Bind(in)
	require.Error(t, err)
	assert.True(t, errors.IsTypeMismatch(err))
}

func TestBindDirectionChecks(t *testing.T) {
	producers := newReplicas(t, 1, task.Output("out", task.Int32, 1))
	consumers := newReplicas(t, 1, task.Input("in", task.Int32, 1))

	out, err := New(task.Output("out", task.Int32, 1), producers, 2)
	require.NoError(t, err)
	in, err := New(task.Input("in", task.Int32, 1), consumers, 2)
	require.NoError(t, err)

	assert.True(t, errors.IsInvalid(in.Bind(out)), "cannot bind from an input")
	assert.True(t, errors.IsInvalid(out.Bind(out)), "cannot bind to an output")
}

func TestStatistics(t *testing.T) {
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))
	s, err := New(task.Input("in", task.Int32, 1), replicas, 4)
	require.NoError(t, err)

	buf := s.(*Buffered[int32])
	for i := int32(0); i < 3; i++ {
		require.True(t, buf.Write([]int32{i}))
	}
	require.True(t, s.Pop(0))

	stats := s.Stats()
	assert.Equal(t, int64(3), stats.Pushes())
	assert.Equal(t, int64(1), stats.Pops())
	assert.Equal(t, int64(2), stats.CurrentSize())
	assert.Equal(t, int64(3), stats.MaxSize())

	stats.Reset()
	assert.Equal(t, int64(0), stats.Pushes())
	assert.Equal(t, int64(0), stats.MaxSize())
}

func TestSocketMetrics(t *testing.T) {
	registry := metric.NewRegistry()
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))

	s, err := New(task.Input("in", task.Int32, 1), replicas, 2,
		WithMetrics(registry, "blockA.in"))
	require.NoError(t, err)

	buf := s.(*Buffered[int32])
	require.True(t, buf.Write([]int32{1}))
	require.True(t, s.Pop(0))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["pipekit_socket_pushes_total"])
	assert.True(t, names["pipekit_socket_pops_total"])
	assert.True(t, names["pipekit_socket_occupancy"])
}

func TestMetricsRegistrationConflict(t *testing.T) {
	registry := metric.NewRegistry()
	replicas := newReplicas(t, 1, task.Input("in", task.Int32, 1))

	_, err := New(task.Input("in", task.Int32, 1), replicas, 2,
		WithMetrics(registry, "dup"))
	require.NoError(t, err)

	_, err = New(task.Input("in", task.Int32, 1), replicas, 2,
		WithMetrics(registry, "dup"))
	require.Error(t, err, "same prefix registers the same metric keys")
}
