// Package ae implements a readiness-driven event loop: an epoll wrapper
// that a connection's state machine registers per-fd read/write interest
// with. There are no timers — every registration is a file event.
package ae

import "golang.org/x/sys/unix"

// Interest is which readiness a registration cares about.
type Interest int

const (
	Readable Interest = iota + 1
	Writable
)

var interestToEpoll = [3]uint32{0, unix.EPOLLIN, unix.EPOLLOUT}

// FileProc handles fd becoming ready for its registered interest.
type FileProc func(loop *Loop, fd int)

type fileEvent struct {
	proc FileProc
}

// key distinguishes a fd's readable and writable registrations in one
// map without a second table.
func key(fd int, interest Interest) int {
	if interest == Readable {
		return fd
	}
	return -fd - 1
}

// Loop owns the epoll instance and the fd -> handler registrations.
type Loop struct {
	epfd    int
	events  map[int]*fileEvent
	stopped bool
}

// New creates an epoll instance and its empty registration table.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Loop{epfd: epfd, events: make(map[int]*fileEvent)}, nil
}

func (l *Loop) currentMask(fd int) (mask uint32) {
	if l.events[key(fd, Readable)] != nil {
		mask |= interestToEpoll[Readable]
	}
	if l.events[key(fd, Writable)] != nil {
		mask |= interestToEpoll[Writable]
	}
	return
}

// AddFileEvent registers proc to run whenever fd becomes ready for
// interest. Re-registering an interest already held is a no-op.
func (l *Loop) AddFileEvent(fd int, interest Interest, proc FileProc) error {
	prev := l.currentMask(fd)
	want := interestToEpoll[interest]
	if prev&want != 0 {
		return nil
	}
	op := unix.EPOLL_CTL_ADD
	if prev != 0 {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(l.epfd, op, fd, &unix.EpollEvent{Fd: int32(fd), Events: prev | want}); err != nil {
		return err
	}
	l.events[key(fd, interest)] = &fileEvent{proc: proc}
	return nil
}

// RemoveFileEvent unregisters interest on fd, if held.
func (l *Loop) RemoveFileEvent(fd int, interest Interest) {
	if l.events[key(fd, interest)] == nil {
		return
	}
	mask := l.currentMask(fd) &^ interestToEpoll[interest]
	op := unix.EPOLL_CTL_DEL
	if mask != 0 {
		op = unix.EPOLL_CTL_MOD
	}
	_ = unix.EpollCtl(l.epfd, op, fd, &unix.EpollEvent{Fd: int32(fd), Events: mask})
	delete(l.events, key(fd, interest))
}

type readyEvent struct {
	fd       int
	interest Interest
}

// RunOnce blocks in epoll_wait with no timeout, retrying on EINTR, then
// runs every ready fd's registered proc. Any other wait failure is
// returned; the caller must treat it as fatal.
func (l *Loop) RunOnce() error {
	var raw [128]unix.EpollEvent
	var n int
	for {
		var err error
		n, err = unix.EpollWait(l.epfd, raw[:], -1)
		if err == nil {
			break
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}

	events := make([]readyEvent, 0, n*2)
	for _, ev := range raw[:n] {
		fd := int(ev.Fd)
		if ev.Events&unix.EPOLLIN != 0 {
			events = append(events, readyEvent{fd, Readable})
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			events = append(events, readyEvent{fd, Writable})
		}
	}
	for _, e := range events {
		if fe := l.events[key(e.fd, e.interest)]; fe != nil {
			fe.proc(l, e.fd)
		}
	}
	return nil
}

// Run drives RunOnce until Stop is called or a wait failure occurs.
func (l *Loop) Run() error {
	for !l.stopped {
		if err := l.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// Stop ends the next Run loop iteration.
func (l *Loop) Stop() { l.stopped = true }
