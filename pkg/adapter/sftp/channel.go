package sftp

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// watchedChannel reads its channel in the background so an EOF from the
// peer is noticed whether or not a subsystem owns the channel yet. Data
// reaches the owner through a pipe; EOF is passed on to it as well.
type watchedChannel struct {
	ssh.Channel
	pr *io.PipeReader
}

func newWatchedChannel(ch ssh.Channel) *watchedChannel {
	return &watchedChannel{Channel: ch}
}

// watch starts the reader. onEOF runs when reading ends with EOF, which is
// also what a local Close produces, so it must be safe to call after the
// channel has been taken.
func (w *watchedChannel) watch(onEOF func()) {
	pr, pw := io.Pipe()
	w.pr = pr
	go func() {
		_, err := io.Copy(pw, w.Channel)
		_ = pw.CloseWithError(err)
		if err == nil {
			onEOF()
		}
	}()
}

func (w *watchedChannel) Read(p []byte) (int, error) {
	return w.pr.Read(p)
}

// Close stops the reader and closes the channel.
func (w *watchedChannel) Close() error {
	_ = w.pr.Close()
	return w.Channel.Close()
}
