package unitofwork

import "context"

// journal records driver calls in order so tests can assert sequencing.
type journal struct{ calls []string }

func (j *journal) add(call string) { j.calls = append(j.calls, call) }

func (j *journal) count(call string) int {
	n := 0
	for _, c := range j.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (j *journal) index(call string) int {
	for i, c := range j.calls {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeDriver struct {
	j           *journal
	connectErr  error
	startErr    error
	commitErr   error
	rollbackErr error
	releaseErr  error
	handles     []*fakeHandle
}

func newFakeDriver() *fakeDriver { return &fakeDriver{j: &journal{}} }

func (d *fakeDriver) Connect(context.Context) (Handle, error) {
	d.j.add("connect")
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	h := &fakeHandle{d: d, id: len(d.handles) + 1}
	d.handles = append(d.handles, h)
	return h, nil
}

type fakeHandle struct {
	d        *fakeDriver
	id       int
	active   bool
	released bool
}

type fakeAccessor struct{ handle int }

func (h *fakeHandle) StartTransaction(context.Context) error {
	h.d.j.add("start")
	if h.d.startErr != nil {
		return h.d.startErr
	}
	h.active = true
	return nil
}

func (h *fakeHandle) CommitTransaction(context.Context) error {
	h.d.j.add("commit")
	if h.d.commitErr != nil {
		return h.d.commitErr
	}
	h.active = false
	return nil
}

func (h *fakeHandle) RollbackTransaction(context.Context) error {
	h.d.j.add("rollback")
	h.active = false
	return h.d.rollbackErr
}

func (h *fakeHandle) Release() error {
	h.d.j.add("release")
	h.released = true
	return h.d.releaseErr
}

func (h *fakeHandle) IsTransactionActive() bool { return h.active }
func (h *fakeHandle) IsReleased() bool          { return h.released }
func (h *fakeHandle) Accessor() any             { return fakeAccessor{handle: h.id} }

type recordingObserver struct{ events []Event }

func (o *recordingObserver) Observe(_ string, ev Event) { o.events = append(o.events, ev) }
