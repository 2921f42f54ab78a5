package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/studio1767/hashforge/internal/ops"
)

// progressView renders pipeline snapshots as a byte progress bar. The bar
// is created on the first snapshot, once the total is known.
type progressView struct {
	w    io.Writer
	dark bool

	bar  *progressbar.ProgressBar
	last int64
}

func newProgressView(w io.Writer, dark bool) *progressView {
	return &progressView{w: w, dark: dark}
}

func (pv *progressView) theme() progressbar.Theme {
	if pv.dark {
		return progressbar.Theme{
			Saucer:        "[cyan]=[reset]",
			SaucerHead:    "[cyan]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}
	}
	return progressbar.Theme{
		Saucer:        "#",
		SaucerPadding: "-",
		BarStart:      "|",
		BarEnd:        "|",
	}
}

func (pv *progressView) Update(snap *ops.ProgressSnapshot) {
	if pv.bar == nil {
		pv.bar = progressbar.NewOptions64(
			snap.TotalBytes,
			progressbar.OptionSetWriter(pv.w),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(pv.dark),
			progressbar.OptionSetTheme(pv.theme()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(120*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	if delta := snap.ProcessedBytes - pv.last; delta > 0 {
		_ = pv.bar.Add64(delta)
		pv.last = snap.ProcessedBytes
	}
	pv.bar.Describe(fmt.Sprintf("%s %s", snap.FilesText, snap.CurrentFile))
}

func (pv *progressView) Close() {
	if pv.bar != nil {
		_ = pv.bar.Finish()
	}
}
