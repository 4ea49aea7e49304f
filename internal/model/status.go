package model

// Status is the lifecycle state of a ProcessingRequest
type Status string

const (
	StatusQueued             Status = "QUEUED"
	StatusDownloading        Status = "DOWNLOADING"
	StatusEncoding           Status = "ENCODING"
	StatusCompleted          Status = "COMPLETED"
	StatusUnrecognizedFormat Status = "UNRECOGNIZED_FORMAT"
	StatusDownloadFailed     Status = "DOWNLOAD_FAILED"
	StatusNetworkError       Status = "NETWORK_ERROR"
	StatusEncodingFault      Status = "ENCODING_FAULT"
	StatusInternalFault      Status = "INTERNAL_FAULT"
)

// IsTerminal reports whether no further transition can occur from s
func (s Status) IsTerminal() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusEncoding:
		return false
	}
	return true
}

// predecessors lists, for each target status, the statuses it may be reached from.
var predecessors = map[Status][]Status{
	StatusDownloading:        {StatusQueued},
	StatusEncoding:           {StatusDownloading},
	StatusCompleted:          {StatusEncoding},
	StatusUnrecognizedFormat: {StatusQueued},
	StatusDownloadFailed:     {StatusDownloading},
	StatusNetworkError:       {StatusDownloading},
	StatusEncodingFault:      {StatusEncoding},
	StatusInternalFault:      {StatusQueued, StatusDownloading, StatusEncoding},
}

// Predecessors returns the statuses from which to is reachable
func Predecessors(to Status) []Status {
	return predecessors[to]
}

// CanTransition reports whether from -> to is a forward edge of the state machine
func CanTransition(from, to Status) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}
