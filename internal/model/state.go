package model

// DownloadState is the lifecycle of the single foreground download.
type DownloadState string

const (
	StateIdle        DownloadState = "idle"
	StateAnalyzing   DownloadState = "analyzing"
	StateStarting    DownloadState = "starting"
	StateDownloading DownloadState = "downloading"
	StateMerging     DownloadState = "merging"
	StateCancelling  DownloadState = "cancelling"
	StateCompleted   DownloadState = "completed"
	StateCancelled   DownloadState = "cancelled"
	StateFailed      DownloadState = "failed"
)

var transitions = map[DownloadState][]DownloadState{
	StateIdle:        {StateAnalyzing, StateStarting},
	StateAnalyzing:   {StateIdle, StateStarting, StateFailed},
	StateStarting:    {StateDownloading, StateFailed},
	StateDownloading: {StateMerging, StateCompleted, StateCancelling, StateFailed},
	StateMerging:     {StateCompleted, StateCancelling, StateFailed},
	StateCancelling:  {StateCancelled},
	StateCompleted:   {StateIdle},
	StateCancelled:   {StateIdle},
	StateFailed:      {StateIdle},
}

// CanTransitionTo reports whether the backend state machine allows s → target.
func (s DownloadState) CanTransitionTo(target DownloadState) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal is true for completed, cancelled and failed.
func (s DownloadState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// IsActive is true while the backend is working on the download.
func (s DownloadState) IsActive() bool {
	switch s {
	case StateAnalyzing, StateStarting, StateDownloading, StateMerging, StateCancelling:
		return true
	}
	return false
}
