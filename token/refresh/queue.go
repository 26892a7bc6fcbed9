package refresh

import "context"

type settlement struct {
	token string
	err   error
}

// Handle is a caller suspended until an in-flight refresh settles. It is settled exactly
// once, with either the renewed access token or an error.
type Handle struct {
	Seq     uint64 // enqueue order, starting at 1
	ch      chan settlement
	settled bool
}

// Wait blocks until the handle is settled or ctx is done. A caller that gives up still
// has its settlement delivered to the buffered channel; it is simply never read.
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case s := <-h.ch:
		return s.token, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handle) settle(s settlement) bool {
	if h.settled {
		return false
	}
	h.settled = true
	h.ch <- s
	return true
}

// PendingQueue is the ordered list of handles waiting on one refresh. It is not safe for
// concurrent use; the Coordinator serializes access with its own lock.
type PendingQueue struct {
	handles []*Handle
	seq     uint64
}

// Enqueue appends a new unsettled handle.
func (q *PendingQueue) Enqueue() *Handle {
	q.seq++
	h := &Handle{Seq: q.seq, ch: make(chan settlement, 1)}
	q.handles = append(q.handles, h)
	return h
}

func (q *PendingQueue) Len() int {
	return len(q.handles)
}

// ResolveAll settles every handle with token in enqueue order and empties the queue.
func (q *PendingQueue) ResolveAll(token string) []*Handle {
	return q.drain(settlement{token: token})
}

// RejectAll settles every handle with err in enqueue order and empties the queue.
func (q *PendingQueue) RejectAll(err error) []*Handle {
	return q.drain(settlement{err: err})
}

func (q *PendingQueue) drain(s settlement) []*Handle {
	drained := q.handles
	q.handles = nil
	for _, h := range drained {
		h.settle(s)
	}
	return drained
}
