package widgets

import (
	"time"

	"github.com/joe/qfieldsync/internal/transfer"
	"github.com/joe/qfieldsync/internal/tui/shared"
)

// Status values for an active file.
const (
	StatusTransferring = "transferring"
	StatusStarting     = "starting"
)

const maxActivities = 50

// ActiveFile is a file a worker is currently moving.
type ActiveFile struct {
	Name        string
	Action      transfer.Action
	Size        int64
	Transferred int64
	Status      string
}

// Status accumulates transfer events of one session for display.
type Status struct {
	SessionID      string
	TotalFiles     int
	TotalBytes     int64
	ProcessedFiles int
	FailedFiles    int
	Active         []*ActiveFile
	Errors         []*transfer.FileError
	Result         *transfer.Result
	Err            error
	StartTime      time.Time
	EndTime        time.Time
	Activities     shared.ActivityLog

	completedBytes int64
}

// NewStatus creates an empty status bound to sessionID. Events of other
// sessions are ignored.
func NewStatus(sessionID string) *Status {
	return &Status{
		SessionID:  sessionID,
		Activities: shared.NewActivityLog(maxActivities),
	}
}

// TransferredBytes is completed bytes plus the partial bytes of active files.
func (s *Status) TransferredBytes() int64 {
	total := s.completedBytes
	for _, file := range s.Active {
		total += file.Transferred
	}

	return total
}

// Elapsed is the time since the transfer started, frozen once it ended.
func (s *Status) Elapsed(now time.Time) time.Duration {
	switch {
	case s.StartTime.IsZero():
		return 0
	case !s.EndTime.IsZero():
		return s.EndTime.Sub(s.StartTime)
	default:
		return now.Sub(s.StartTime)
	}
}

// Done reports whether TransferCompleted arrived.
func (s *Status) Done() bool {
	return !s.EndTime.IsZero()
}

// Apply folds event into the status. It returns false for events of
// another session.
func (s *Status) Apply(event transfer.Event, now time.Time) bool {
	if s.SessionID != "" && transfer.SessionOf(event) != s.SessionID {
		return false
	}

	switch e := event.(type) {
	case transfer.TransferStarted:
		s.TotalFiles = e.Files
		s.TotalBytes = e.Bytes
		s.StartTime = now
	case transfer.FileStarted:
		s.Active = append(s.Active, &ActiveFile{
			Name: e.Name, Action: e.Action, Size: e.Size, Status: StatusStarting,
		})
	case transfer.FileProgress:
		if file := s.find(e.Name); file != nil {
			file.Transferred = e.Bytes
			file.Status = StatusTransferring

			if e.Total > 0 {
				file.Size = e.Total
			}
		}
	case transfer.FileCompleted:
		s.remove(e.Name)
		s.ProcessedFiles++
		s.completedBytes += e.Size
		s.Activities = s.Activities.Add(shared.SuccessSymbol() + " " + e.Action.String() + " " + e.Name)
	case transfer.FileFailed:
		s.remove(e.Name)
		s.FailedFiles++
		s.Errors = append(s.Errors, &transfer.FileError{Name: e.Name, Action: e.Action, Err: e.Err})
		s.Activities = s.Activities.Add(shared.ErrorSymbol() + " " + e.Action.String() + " " + e.Name)
	case transfer.TransferCompleted:
		s.Result = e.Result
		s.Err = e.Err
		s.EndTime = now
		s.Active = nil
	}

	return true
}

func (s *Status) find(name string) *ActiveFile {
	for _, file := range s.Active {
		if file.Name == name {
			return file
		}
	}

	return nil
}

func (s *Status) remove(name string) {
	for i, file := range s.Active {
		if file.Name == name {
			s.Active = append(s.Active[:i], s.Active[i+1:]...)
			return
		}
	}
}
