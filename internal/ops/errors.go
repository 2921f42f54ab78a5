package ops

import (
	"fmt"
)

type ErrNoFilesFound struct{}

func (e *ErrNoFilesFound) Error() string {
	return "no files found in the selection"
}

type ErrEnumerationAborted struct{}

func (e *ErrEnumerationAborted) Error() string {
	return "enumeration aborted: run cancelled"
}

type ErrNoAlgorithmSelected struct{}

func (e *ErrNoAlgorithmSelected) Error() string {
	return "no hash algorithm selected"
}

type ErrAlreadyRunning struct {
	state State
}

func (e *ErrAlreadyRunning) Error() string {
	return fmt.Sprintf("pipeline already running: %s", e.state)
}

type ErrNotIdle struct {
	state State
}

func (e *ErrNotIdle) Error() string {
	return fmt.Sprintf("pipeline is %s: reset before starting a new run", e.state)
}

type ErrFileChanged struct {
	path string
}

func (e *ErrFileChanged) Error() string {
	return fmt.Sprintf("file grew while hashing: %s", e.path)
}
