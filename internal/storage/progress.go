package storage

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

func newDownloadProgress(w io.Writer, key string, size int64) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}

	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("downloading "+key),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionUseANSICodes(false),
		progressbar.OptionEnableColorCodes(false),
	)
}

// progressWriterAt counts bytes written by the concurrent s3 downloader.
type progressWriterAt struct {
	w   io.WriterAt
	bar *progressbar.ProgressBar
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)
	_ = p.bar.Add(n)
	return n, err
}
