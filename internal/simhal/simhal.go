// Package simhal provides a HAL and a real periodic tick source for
// hosting the kernel on a development machine, standing in for the
// memory-mapped timer hardware a real port would drive.
//
// The tick source is a Linux timerfd registered with epoll, applied
// to a periodic deadline instead of file descriptor readiness.
package simhal

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Ticker drives linmo.Kernel.Tick from a Linux timerfd.
type Ticker struct {
	epfd    int
	timerfd int
	stop    chan struct{}
	done    chan struct{}
}

// NewTicker creates a timerfd armed to fire every period, registered
// with a dedicated epoll instance.
func NewTicker(period time.Duration) (*Ticker, error) {
	tfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return nil, fmt.Errorf("simhal: timerfd_create: %w", err)
	}
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(tfd, 0, spec, nil); err != nil {
		unix.Close(tfd)
		return nil, fmt.Errorf("simhal: timerfd_settime: %w", err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(tfd)
		return nil, fmt.Errorf("simhal: epoll_create1: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(tfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, tfd, &ev); err != nil {
		unix.Close(tfd)
		unix.Close(epfd)
		return nil, fmt.Errorf("simhal: epoll_ctl: %w", err)
	}

	return &Ticker{epfd: epfd, timerfd: tfd, stop: make(chan struct{}), done: make(chan struct{})}, nil
}

// Run blocks, calling onTick once per timerfd expiry, until Close is
// called.
func (t *Ticker) Run(onTick func()) {
	defer close(t.done)
	events := make([]unix.EpollEvent, 1)
	buf := make([]byte, 8)
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		n, err := unix.EpollWait(t.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n <= 0 {
			continue
		}
		if _, err := unix.Read(t.timerfd, buf); err != nil {
			continue
		}
		// The read returns how many expirations occurred since the
		// previous read; deliver one tick for each.
		for n := binary.NativeEndian.Uint64(buf); n > 0; n-- {
			onTick()
		}
	}
}

// Close stops Run and releases the timerfd/epoll descriptors.
func (t *Ticker) Close() error {
	close(t.stop)
	<-t.done
	unix.Close(t.timerfd)
	return unix.Close(t.epfd)
}
