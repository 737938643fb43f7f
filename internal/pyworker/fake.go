package pyworker

import (
	"bufio"
	"io"
	"sync"
)

// Fake is an in-process stand-in for a helper. Handle receives each request
// line and returns the reply line; a nil reply ends the fake process.
type Fake struct {
	Handle func(req []byte) []byte

	mu       sync.Mutex
	starts   int
	lastName string
	lastArgs []string
}

func NewFake(handle func(req []byte) []byte) *Fake {
	return &Fake{Handle: handle}
}

// Launch satisfies Launcher.
func (f *Fake) Launch(name string, args ...string) (*Conn, error) {
	f.mu.Lock()
	f.starts++
	f.lastName = name
	f.lastArgs = append([]string(nil), args...)
	f.mu.Unlock()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		scanner.Buffer(make([]byte, 0, 64<<10), 64<<20)
		for scanner.Scan() {
			req := append([]byte(nil), scanner.Bytes()...)
			reply := f.Handle(req)
			if reply == nil {
				return
			}
			if _, err := outW.Write(append(reply, '\n')); err != nil {
				return
			}
		}
	}()

	return &Conn{
		In:  inW,
		Out: outR,
		Stop: func() error {
			inW.Close()
			inR.Close()
			outR.Close()
			return nil
		},
	}, nil
}

// Starts reports how many processes were launched.
func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// LastCommand returns the name and arguments of the latest launch.
func (f *Fake) LastCommand() (string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastName, f.lastArgs
}
