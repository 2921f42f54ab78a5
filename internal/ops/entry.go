package ops

import (
	"time"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/verify"
)

// Input is one entry of the user's selection: a file or a directory.
// IsDir is only a hint; the filesystem decides.
type Input struct {
	Path  string
	IsDir bool
}

// FileTask is a regular file found during enumeration. Size is the size
// seen while walking, or -1 when it could not be read.
type FileTask struct {
	Path string
	Size int64
}

// HashRecord is the result for one file and one algorithm. Records with a
// non-empty Error carry no digest.
type HashRecord struct {
	FileName  string
	FullPath  string
	Algorithm digest.Algorithm
	Digest    string
	Size      int64
	SizeText  string
	Match     verify.Status
	Error     string
}

func (r *HashRecord) Failed() bool {
	return r.Error != ""
}

// ProgressSnapshot is emitted after every chunk and with every record.
type ProgressSnapshot struct {
	Percent        float64
	FilesText      string
	BytesText      string
	Speed          float64
	SpeedText      string
	ETASeconds     float64
	ETAText        string
	CurrentFile    string
	FileIndex      int
	FileCount      int
	ProcessedBytes int64
	TotalBytes     int64

	// set on file completion (or failure), nil on chunk updates
	Record *HashRecord
}

// State is the pipeline's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateEnumerating
	StateSizing
	StateHashing
	StateCompleted
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateEnumerating: "enumerating",
	StateSizing:      "sizing",
	StateHashing:     "hashing",
	StateCompleted:   "completed",
	StateCancelled:   "cancelled",
	StateFailed:      "failed",
}

func (s State) String() string {
	return stateNames[s]
}

// Running reports whether a run is in flight.
func (s State) Running() bool {
	return s == StateEnumerating || s == StateSizing || s == StateHashing
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Summary describes a finished run.
type Summary struct {
	TotalFiles     int
	FilesHashed    int
	FilesFailed    int
	TotalBytes     int64
	ProcessedBytes int64
	AverageSpeed   float64
	Elapsed        time.Duration
}

// Outcome is the last event of every run. Records holds every record
// emitted, including those of a cancelled run.
type Outcome struct {
	State   State
	Summary Summary
	Records []HashRecord
	Err     error
}

// Event is one message on the pipeline's stream: exactly one field is set.
type Event struct {
	Progress *ProgressSnapshot
	Outcome  *Outcome
}
