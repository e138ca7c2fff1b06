package watcher

import (
	"io"

	"github.com/nxadm/tail"
)

// Tailer supplies already-split, ordered log lines starting at a byte
// offset. Stop releases the underlying file resource and is safe to call
// more than once.
type Tailer interface {
	Lines() <-chan string
	Offset() (int64, error)
	Stop() error
}

// fileTailer adapts nxadm/tail to the Tailer interface.
type fileTailer struct {
	t   *tail.Tail
	out chan string
}

// TailFile follows a client log from the given byte offset. Polling mode
// because the client keeps the file open and fsnotify misses appends on
// some Windows setups; ReOpen survives the user truncating the log.
func TailFile(path string, offset int64) (Tailer, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		Poll:      true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}

	ft := &fileTailer{t: t, out: make(chan string)}
	go func() {
		defer close(ft.out)
		for line := range t.Lines {
			if line.Err != nil {
				continue
			}
			ft.out <- line.Text
		}
	}()
	return ft, nil
}

func (f *fileTailer) Lines() <-chan string { return f.out }

func (f *fileTailer) Offset() (int64, error) { return f.t.Tell() }

func (f *fileTailer) Stop() error {
	err := f.t.Stop()
	f.t.Cleanup()
	return err
}
