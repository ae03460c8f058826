// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

// trackRejection notes a rejection that has no reaction yet. It is reported
// at the next checkpoint unless a reaction is attached first.
func (s *Scheduler) trackRejection(d *Deferred) {
	s.rejections = append(s.rejections, d)
}

// rejectionHandled is called when the first reaction is attached to an
// already rejected deferred.
func (s *Scheduler) rejectionHandled(d *Deferred) {
	if d.reported != nil {
		d.reported.HandledLate = true
		s.logRejectionHandledLate(d.reported)
		return
	}
	for i, pending := range s.rejections {
		if pending == d {
			s.rejections = append(s.rejections[:i], s.rejections[i+1:]...)
			return
		}
	}
}

// checkpoint reports every tracked rejection that is still unhandled, in
// rejection order. It runs whenever the microtask queue becomes empty during
// a drain.
func (s *Scheduler) checkpoint() {
	for len(s.rejections) != 0 {
		batch := s.rejections
		s.rejections = nil
		for _, d := range batch {
			if d.handled {
				continue
			}
			u := &UnhandledRejection{
				Reason:     d.result,
				Label:      d.label,
				DeferredID: d.id,
			}
			d.reported = u
			s.unhandled = append(s.unhandled, u)
			s.logUnhandledRejection(u)
			if s.onUnhandled != nil {
				s.callHandler(func() { s.onUnhandled(u) })
			}
		}
	}
}
