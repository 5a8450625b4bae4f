package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/desertthunder/downcida/internal/tasks"
)

// progressObserver renders engine updates on a terminal: a spinner while the job converts,
// then a byte bar while the file streams. One observer follows a whole batch; each Submit starts over.
type progressObserver struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	phase tasks.Phase
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w, phase: -1}
}

// observe consumes updates until the channel is closed.
func (o *progressObserver) observe(updates <-chan tasks.ProgressUpdate) {
	for u := range updates {
		o.handle(u)
	}
	o.clear()
}

func (o *progressObserver) handle(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.Submit, tasks.Poll:
		if u.Phase == tasks.Submit || o.phase != u.Phase || o.bar == nil {
			o.clear()
			o.bar = progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(o.w),
				progressbar.OptionSetDescription(u.Message),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionClearOnFinish(),
			)
		}
		o.bar.Describe(u.Message)
		o.bar.Add(1)

	case tasks.Download:
		tp, _ := u.Data.(tasks.TransferProgress)
		if o.phase != tasks.Download || o.bar == nil {
			o.clear()
			o.bar = progressbar.NewOptions64(sizeOrUnknown(tp.TotalBytes),
				progressbar.OptionSetWriter(o.w),
				progressbar.OptionSetDescription("downloading"),
				progressbar.OptionShowBytes(true),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		if tp.TotalBytes > 0 && o.bar.GetMax64() != tp.TotalBytes {
			o.bar.ChangeMax64(tp.TotalBytes)
		}
		o.bar.Set64(tp.BytesWritten)

	case tasks.Complete:
		o.clear()
	}
	o.phase = u.Phase
}

func (o *progressObserver) clear() {
	if o.bar == nil {
		return
	}
	o.bar.Finish()
	o.bar = nil
}

// sizeOrUnknown maps a missing Content-Length to the spinner mode of progressbar.
func sizeOrUnknown(total int64) int64 {
	if total <= 0 {
		return -1
	}
	return total
}
