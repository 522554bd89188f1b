package task

// Task is the unit-of-work collaborator executed by block replicas. The
// block never looks inside the computation; it only needs the ordered
// endpoint list, a way to clone independent replicas, access to each
// endpoint's backing storage, and a synchronous Exec.
//
// Clone must produce a fully independent replica: no backing storage may be
// shared between the original and the clone, nor between clones. Each
// replica is owned by exactly one worker thread for the lifetime of its
// block, so implementations need no internal locking.
//
// Storage returns the slice backing the named endpoint ([]int8, []int16,
// []int32, []int64, []float32 or []float64 of length Count, matching the
// endpoint descriptor) or nil for an unknown name. Sockets copy into input
// storage before Exec and out of output storage after it.
type Task interface {
	Name() string
	Endpoints() []Endpoint
	Clone() Task
	Storage(name string) any
	Exec() error
}
