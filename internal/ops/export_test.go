package ops

import (
	"context"
	"io"
	"log/slog"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/telemetry"
)

// HashStream runs a single file's read loop over in, treating size as the
// size reported by stat. A returned error is turned into failure records,
// as the pipeline does.
func HashStream(in io.Reader, size int64, algs digest.Set) ([]HashRecord, error) {
	pipeline := NewPipeline(Options{
		ChunkSize: digest.MinChunkSize,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	out := make(chan Event, 1024)
	task := FileTask{Path: "stream.bin", Size: size}
	r := pipelineRun{
		ctx:      context.Background(),
		pipeline: pipeline,
		req:      Request{Algorithms: algs},
		algs:     algs.List(),
		out:      out,
		buf:      make([]byte, pipeline.opts.ChunkSize),
		tasks:    []FileTask{task},
		meter:    telemetry.NewMeter(telemetry.RealClock(), size),
	}

	err := r.hashStream(0, task, in, size)
	if err != nil {
		r.emitFailure(0, task, err)
	}
	close(out)

	return r.records, err
}
