// Package selfpipe implements the classic self-pipe trick for breaking a
// transport's blocking read/poll loop out of a wait with a volatile,
// cross-goroutine abort signal, on platforms with POSIX pipes.
package selfpipe

import "golang.org/x/sys/unix"

// Pipe is a one-shot wakeup signal. Trigger is safe to call from any
// goroutine, including concurrently with Triggered or Reset.
type Pipe struct {
	r, w int
}

// New creates a Pipe. The caller must Close it when done.
func New() (*Pipe, error) {
	fds, err := unix.Pipe2([]int{0, 0}, unix.O_NONBLOCK|unix.O_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Pipe{r: fds[0], w: fds[1]}, nil
}

// Trigger wakes any loop polling Triggered. Repeated calls before the next
// Reset are coalesced.
func (p *Pipe) Trigger() {
	var b [1]byte
	unix.Write(p.w, b[:])
}

// Triggered reports whether Trigger has been called since the last Reset,
// without blocking.
func (p *Pipe) Triggered() bool {
	var b [16]byte
	got := false
	for {
		n, err := unix.Read(p.r, b[:])
		if err != nil || n <= 0 {
			return got
		}
		got = true
	}
}

// Reset is a no-op kept for symmetry; Triggered already drains the pipe,
// so a fresh Pipe (or one where Triggered returned true) is immediately
// ready to detect the next Trigger.
func (p *Pipe) Reset() {}

// Close releases both ends of the underlying pipe.
func (p *Pipe) Close() error {
	err1 := unix.Close(p.r)
	err2 := unix.Close(p.w)
	if err1 != nil {
		return err1
	}
	return err2
}
