package ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/telemetry"
	"github.com/studio1767/hashforge/internal/verify"
)

const (
	// DefaultEventBuffer is the capacity of the event channel.
	DefaultEventBuffer = 64

	// Unbuffered makes every send wait for the consumer.
	Unbuffered = -1
)

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	ChunkSize   int
	EventBuffer int
	Filters     []*ExtensionFilter
	Clock       telemetry.Clock
	Logger      *slog.Logger
}

// Request is one compute request.
type Request struct {
	Inputs     []Input
	Algorithms digest.Set
	Expected   *verify.ExpectedSet
}

// Pipeline runs one hashing run at a time: it expands the inputs, sizes
// the files, then hashes them one after the other, all selected algorithms
// advancing together over each chunk.
type Pipeline struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

func NewPipeline(opts Options) *Pipeline {
	opts.ChunkSize = digest.ClampChunkSize(opts.ChunkSize)
	if opts.EventBuffer == 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.EventBuffer < 0 {
		opts.EventBuffer = 0
	}
	if opts.Clock == nil {
		opts.Clock = telemetry.RealClock()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		opts:   opts,
		logger: logger,
		state:  StateIdle,
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset returns a finished pipeline to idle.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Running() {
		return &ErrAlreadyRunning{state: p.state}
	}
	p.state = StateIdle
	return nil
}

func (p *Pipeline) setState(state State) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	p.logger.Debug("pipeline state", "state", state.String())
}

// Start validates the request and launches the run. The returned channel
// delivers progress events in order, then one Outcome event, then closes.
// The consumer must drain it; the producer never drops events.
func (p *Pipeline) Start(ctx context.Context, req Request) (<-chan Event, error) {
	if req.Algorithms.Empty() {
		return nil, &ErrNoAlgorithmSelected{}
	}

	p.mu.Lock()
	if p.state.Running() {
		state := p.state
		p.mu.Unlock()
		return nil, &ErrAlreadyRunning{state: state}
	}
	if p.state != StateIdle {
		state := p.state
		p.mu.Unlock()
		return nil, &ErrNotIdle{state: state}
	}
	p.state = StateEnumerating
	p.mu.Unlock()

	out := make(chan Event, p.opts.EventBuffer)
	r := pipelineRun{
		ctx:      ctx,
		pipeline: p,
		req:      req,
		algs:     req.Algorithms.List(),
		out:      out,
		buf:      make([]byte, p.opts.ChunkSize),
	}
	go r.execute()

	return out, nil
}

// errCancelled signals a cancellation seen inside a file.
var errCancelled = errors.New("cancelled")

// pipelineRun is the in-flight state of one run.
type pipelineRun struct {
	ctx      context.Context
	pipeline *Pipeline
	req      Request
	algs     []digest.Algorithm
	out      chan<- Event
	buf      []byte

	tasks   []FileTask
	meter   *telemetry.Meter
	records []HashRecord
	hashed  int
	failed  int
}

func (r *pipelineRun) logger() *slog.Logger {
	return r.pipeline.logger
}

func (r *pipelineRun) execute() {
	defer close(r.out)

	// enumerate
	tasks, err := Expand(r.ctx, r.req.Inputs, r.pipeline.opts.Filters...)
	if err != nil {
		r.finish(StateCancelled, err)
		return
	}
	if len(tasks) == 0 {
		r.finish(StateFailed, &ErrNoFilesFound{})
		return
	}
	r.tasks = tasks

	// size: files that can't be stat'ed are left out of the total but are
	// still attempted
	r.pipeline.setState(StateSizing)
	var total int64
	for _, task := range tasks {
		if r.ctx.Err() != nil {
			r.finish(StateCancelled, r.ctx.Err())
			return
		}
		info, err := os.Stat(task.Path)
		if err != nil {
			continue
		}
		total += info.Size()
	}

	r.pipeline.setState(StateHashing)
	r.meter = telemetry.NewMeter(r.pipeline.opts.Clock, total)
	r.logger().Info("hashing started",
		"files", len(tasks),
		"bytes", total,
		"algorithms", r.req.Algorithms.String(),
		"expected", r.req.Expected.Len(),
	)

	for idx, task := range tasks {
		// check for cancel between files
		if r.ctx.Err() != nil {
			r.finish(StateCancelled, r.ctx.Err())
			return
		}

		err := r.process(idx, task)
		if errors.Is(err, errCancelled) {
			r.finish(StateCancelled, r.ctx.Err())
			return
		}
		if err != nil {
			r.logger().Warn("failed to hash file", "path", task.Path, "error", err)
			r.emitFailure(idx, task, err)
		}
	}

	r.finish(StateCompleted, nil)
}

// process hashes one file. Per-file problems are returned as errors for
// the caller to turn into records; errCancelled aborts the run.
func (r *pipelineRun) process(idx int, task FileTask) error {
	// open for reading
	in, err := os.Open(task.Path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", task.Path, err)
	}

	return r.hashStream(idx, task, in, info.Size())
}

// hashStream reads the file's bytes from in, sealing the digests on the
// chunk that reaches size. Bytes past size mean the file grew; EOF before
// size finalizes what was read.
func (r *pipelineRun) hashStream(idx int, task FileTask, in io.Reader, size int64) error {
	acc := digest.NewAccumulator(r.req.Algorithms)
	sealed := false
	var read int64

	for {
		// check for cancel between chunks
		if r.ctx.Err() != nil {
			return errCancelled
		}

		n, rerr := io.ReadFull(in, r.buf)
		if n > 0 {
			if sealed {
				return &ErrFileChanged{path: task.Path}
			}
			final := read+int64(n) >= size
			if err := acc.Feed(r.buf[:n], final); err != nil {
				return err
			}
			sealed = final
			read += int64(n)

			r.emitChunk(idx, task, int64(n))
		}

		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", task.Path, rerr)
		}
	}

	// empty files, and files that shrank, end here
	if !sealed {
		if err := acc.Feed(nil, true); err != nil {
			return err
		}
		if read == 0 {
			r.emitChunk(idx, task, 0)
		}
	}

	digests, err := acc.Finalize()
	if err != nil {
		return err
	}

	r.hashed++
	for _, alg := range digests.Ordered() {
		hex := digests[alg]
		record := HashRecord{
			FileName:  filepath.Base(task.Path),
			FullPath:  task.Path,
			Algorithm: alg,
			Digest:    hex,
			Size:      read,
			SizeText:  telemetry.FormatSize(read),
			Match:     verify.Check(hex, r.req.Expected),
		}
		r.emitRecord(idx, record)
	}

	return nil
}

func (r *pipelineRun) emitFailure(idx int, task FileTask, err error) {
	r.failed++
	for _, alg := range r.algs {
		record := HashRecord{
			FileName:  filepath.Base(task.Path),
			FullPath:  task.Path,
			Algorithm: alg,
			Size:      -1,
			SizeText:  "-",
			Match:     verify.NotVerified,
			Error:     err.Error(),
		}
		r.emitRecord(idx, record)
	}
}

func (r *pipelineRun) snapshot(idx int) *ProgressSnapshot {
	stats := r.meter.Stats()
	return &ProgressSnapshot{
		Percent:        stats.Percent,
		BytesText:      fmt.Sprintf("%s/%s", telemetry.FormatSize(r.meter.Processed()), telemetry.FormatSize(r.meter.Total())),
		Speed:          stats.Speed,
		SpeedText:      telemetry.FormatSpeed(stats.Speed),
		ETASeconds:     stats.ETASeconds,
		ETAText:        stats.ETAText,
		CurrentFile:    filepath.Base(r.tasks[idx].Path),
		FileIndex:      idx,
		FileCount:      len(r.tasks),
		ProcessedBytes: r.meter.Processed(),
		TotalBytes:     r.meter.Total(),
	}
}

func (r *pipelineRun) emitChunk(idx int, task FileTask, n int64) {
	r.meter.Add(n)

	snap := r.snapshot(idx)
	snap.FilesText = fmt.Sprintf("%d/%d", idx+1, len(r.tasks))

	r.out <- Event{Progress: snap}
}

func (r *pipelineRun) emitRecord(idx int, record HashRecord) {
	r.records = append(r.records, record)

	snap := r.snapshot(idx)
	snap.FilesText = fmt.Sprintf("%d/%d", r.hashed+r.failed, len(r.tasks))
	snap.SpeedText = "-"
	snap.ETAText = "Done"
	if record.Failed() {
		snap.ETAText = "-"
	}
	snap.Record = &record

	r.out <- Event{Progress: snap}
}

func (r *pipelineRun) finish(state State, err error) {
	r.pipeline.setState(state)

	summary := Summary{
		TotalFiles:  len(r.tasks),
		FilesHashed: r.hashed,
		FilesFailed: r.failed,
	}
	if r.meter != nil {
		summary.TotalBytes = r.meter.Total()
		summary.ProcessedBytes = r.meter.Processed()
		summary.AverageSpeed = r.meter.AverageSpeed()
		summary.Elapsed = r.meter.Elapsed()
	}

	switch state {
	case StateCompleted:
		r.logger().Info("hashing completed",
			"files", summary.TotalFiles,
			"failed", summary.FilesFailed,
			"bytes", summary.ProcessedBytes,
			"elapsed", summary.Elapsed,
		)
	case StateCancelled:
		r.logger().Info("hashing cancelled", "records", len(r.records))
	default:
		r.logger().Warn("hashing failed", "error", err)
	}

	r.out <- Event{Outcome: &Outcome{
		State:   state,
		Summary: summary,
		Records: r.records,
		Err:     err,
	}}
}
