package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/barrybecker4/applets-sub001/internal/geometry"
	"github.com/barrybecker4/applets-sub001/internal/search"
)

type AnalysisStatus string

const (
	AnalysisRunning   AnalysisStatus = "running"
	AnalysisPaused    AnalysisStatus = "paused"
	AnalysisComplete  AnalysisStatus = "complete"
	AnalysisCancelled AnalysisStatus = "cancelled"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Finished reports a status that will not change again.
func (s AnalysisStatus) Finished() bool {
	switch s {
	case AnalysisComplete, AnalysisCancelled, AnalysisFailed:
		return true
	}
	return false
}

// GameSpec describes a k-in-a-row position: the board geometry and the
// moves played so far, X first.
type GameSpec struct {
	Rows  int                 `json:"rows" bson:"rows"`
	Cols  int                 `json:"cols" bson:"cols"`
	K     int                 `json:"k" bson:"k"`
	Moves []geometry.Location `json:"moves" bson:"moves"`
}

// GeometryKey names the board shape. Positions with the same key share a
// hash table and so can share a score cache.
func (g GameSpec) GeometryKey() string {
	return fmt.Sprintf("%dx%dk%d", g.Rows, g.Cols, g.K)
}

type Analysis struct {
	ID              primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	AnalysisID      string             `json:"analysisId" bson:"analysisId"`
	ClientID        string             `json:"clientId,omitempty" bson:"clientId,omitempty"`
	Instance        string             `json:"instance,omitempty" bson:"instance,omitempty"` // server that runs it
	Game            GameSpec           `json:"game" bson:"game"`
	Options         search.Options     `json:"options" bson:"options"`
	Status          AnalysisStatus     `json:"status" bson:"status"`
	BestMove        *search.Move       `json:"bestMove,omitempty" bson:"bestMove,omitempty"`
	Value           int                `json:"value" bson:"value"`
	Interrupted     bool               `json:"interrupted" bson:"interrupted"`
	MovesConsidered int64              `json:"movesConsidered" bson:"movesConsidered"`
	PercentDone     int                `json:"percentDone" bson:"percentDone"`
	ElapsedMs       int64              `json:"elapsedMs" bson:"elapsedMs"`
	Error           string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
	CompletedAt     *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
