package interp

import (
	"fmt"
	"sync"

	"github.com/gogpu/wesl/wgsl"
)

type eventKind uint8

const (
	eventDone eventKind = iota
	eventBarrier
	eventFault
	eventPanic
)

type event struct {
	kind  eventKind
	span  wgsl.Span
	fault *Fault
	panic any
}

// aborted unwinds an invocation whose workgroup has stopped.
type aborted struct{}

// invocation is one thread of a workgroup. Invocations run as goroutines
// but only one is ever running: the scheduler resumes them one at a time
// in local index order and waits for each to park at a barrier or finish.
type invocation struct {
	index  int
	resume chan struct{}
	events chan event
	abort  <-chan struct{}
}

func (inv *invocation) wait() {
	select {
	case <-inv.resume:
	case <-inv.abort:
		panic(aborted{})
	}
}

func (inv *invocation) barrier(span wgsl.Span) {
	inv.events <- event{kind: eventBarrier, span: span}
	inv.wait()
}

func (inv *invocation) run(body func(*invocation)) {
	select {
	case <-inv.resume:
	case <-inv.abort:
		// Stopped before its first turn.
		return
	}
	ev := event{kind: eventDone}
	func() {
		defer func() {
			switch r := recover().(type) {
			case nil, discarded:
			case aborted:
				ev.kind = eventPanic
				ev.panic = r
			case *Fault:
				ev.kind = eventFault
				ev.fault = r
			default:
				ev.kind = eventPanic
				ev.panic = r
			}
		}()
		body(inv)
	}()
	if _, ok := ev.panic.(aborted); ok {
		return
	}
	inv.events <- ev
}

// runWorkgroup runs n invocations of body with workgroup barrier
// semantics. Execution proceeds in phases: every live invocation runs, in
// index order, until it reaches a barrier or returns. A phase completes
// only if all live invocations stopped at the same barrier; otherwise the
// barrier was not reached uniformly and the workgroup faults. The first
// fault stops every invocation.
func runWorkgroup(n int, body func(*invocation)) error {
	events := make(chan event)
	abort := make(chan struct{})
	invs := make([]*invocation, n)

	var wg sync.WaitGroup
	for i := range invs {
		inv := &invocation{index: i, resume: make(chan struct{}), events: events, abort: abort}
		invs[i] = inv
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv.run(body)
		}()
	}
	defer func() {
		close(abort)
		wg.Wait()
	}()

	live := invs
	for len(live) > 0 {
		var parked []*invocation
		var at []wgsl.Span
		finished := -1
		for _, inv := range live {
			inv.resume <- struct{}{}
			ev := <-events
			switch ev.kind {
			case eventFault:
				ev.fault.Invocation = inv.index
				return ev.fault
			case eventPanic:
				panic(ev.panic)
			case eventBarrier:
				parked = append(parked, inv)
				at = append(at, ev.span)
			case eventDone:
				if finished < 0 {
					finished = inv.index
				}
			}
		}
		if len(parked) == 0 {
			return nil
		}
		if finished >= 0 {
			return &Fault{
				Code:       FaultBarrier,
				Span:       at[0],
				Invocation: finished,
				Message: fmt.Sprintf("invocation %d finished without reaching the barrier at line %d that invocation %d reached",
					finished, at[0].Start.Line, parked[0].index),
			}
		}
		for i, span := range at[1:] {
			if span != at[0] {
				return &Fault{
					Code:       FaultBarrier,
					Span:       span,
					Invocation: parked[i+1].index,
					Message: fmt.Sprintf("invocation %d reached the barrier at line %d while invocation %d waits at line %d",
						parked[i+1].index, span.Start.Line, parked[0].index, at[0].Start.Line),
				}
			}
		}
		live = parked
	}
	return nil
}
