// Package tasks provides built-in stages for topology-driven pipelines and
// registers them with the default registry. They operate on single int32
// samples and are deliberately stateless, so results do not depend on which
// worker replica processed an item.
package tasks

import (
	"github.com/c360/pipekit/registry"
	"github.com/c360/pipekit/task"
)

func init() {
	registry.Register("zero-source", ZeroSource)
	registry.Register("relayer", Relayer)
	registry.Register("incrementer", Incrementer)
	registry.Register("doubler", Doubler)
	registry.Register("null-sink", NullSink)
}

// ZeroSource builds a task that emits zero-valued samples on "out".
func ZeroSource() (task.Task, error) {
	return task.NewFunc("zero-source",
		[]task.Endpoint{task.Output("out", task.Int32, 1)},
		func(b *task.Base) error {
			out, err := task.Slice[int32](b, "out")
			if err != nil {
				return err
			}
			out[0] = 0
			return nil
		})
}

// Relayer builds a task that copies "in" to "out" unchanged.
func Relayer() (task.Task, error) {
	return mapper("relayer", func(v int32) int32 { return v })
}

// Incrementer builds a task that emits "in" plus one on "out".
func Incrementer() (task.Task, error) {
	return mapper("incrementer", func(v int32) int32 { return v + 1 })
}

// Doubler builds a task that emits "in" times two on "out".
func Doubler() (task.Task, error) {
	return mapper("doubler", func(v int32) int32 { return v * 2 })
}

// NullSink builds a task that consumes "in" and discards it.
func NullSink() (task.Task, error) {
	return task.NewFunc("null-sink",
		[]task.Endpoint{task.Input("in", task.Int32, 1)},
		func(b *task.Base) error {
			if _, err := task.Slice[int32](b, "in"); err != nil {
				return err
			}
			return nil
		})
}

func mapper(name string, fn func(int32) int32) (task.Task, error) {
	return task.NewFunc(name,
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
			out[0] = fn(in[0])
			return nil
		})
}
