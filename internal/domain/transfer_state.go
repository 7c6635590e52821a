package domain

import "time"

// TransferState is the mutable accounting of one in-flight attempt
type TransferState struct {
	Attempt int

	// BytesExpected is -1 when the size is unknown
	BytesExpected int64

	// BytesReceived counts every delivered byte, including a resumed prefix
	BytesReceived int64

	LastError error
}

// NewTransferState creates the state for an attempt starting at offset
func NewTransferState(attempt int, offset int64) *TransferState {
	return &TransferState{
		Attempt:       attempt,
		BytesExpected: -1,
		BytesReceived: offset,
	}
}

// Add records a delivered chunk
func (s *TransferState) Add(n int) {
	s.BytesReceived += int64(n)
}

// SizeMatch is vacuously true when no size was declared
func (s *TransferState) SizeMatch() bool {
	return s.BytesExpected < 0 || s.BytesExpected == s.BytesReceived
}

// ResumeRecord is a journal entry describing a partially written file
type ResumeRecord struct {
	ID            string
	URL           string
	Path          string
	PartPath      string
	Offset        int64
	ETag          string
	ExpectedBytes int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
