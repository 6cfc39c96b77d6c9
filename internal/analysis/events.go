package analysis

import (
	"github.com/barrybecker4/applets-sub001/internal/models"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

// EventType distinguishes messages sent to analysis subscribers.
type EventType string

const (
	EventStatus   EventType = "status"
	EventProgress EventType = "progress"
	EventTree     EventType = "tree"
	EventResult   EventType = "result"
)

// Event is one update about a running analysis. Tree is set for
// EventTree; Analysis for EventStatus and EventResult.
type Event struct {
	Type            EventType             `json:"type"`
	AnalysisID      string                `json:"analysisId"`
	Status          models.AnalysisStatus `json:"status,omitempty"`
	PercentDone     int                   `json:"percentDone"`
	MovesConsidered int64                 `json:"movesConsidered"`
	Tree            *search.TreeEvent     `json:"tree,omitempty"`
	Analysis        *models.Analysis      `json:"analysis,omitempty"`
}

// Listener receives every event of every analysis run by a service. It is
// called on the analysis goroutine and must not block.
type Listener func(Event)
