package jobs

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the externally visible lifecycle of a localization job.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusStarting,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is one of the recognized values.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage identifies the pipeline step a job is currently executing. Stages
// are strictly ordered; a job never moves backwards.
type Stage string

const (
	StageNone         Stage = ""
	StageUploading    Stage = "uploading"
	StageTranscribing Stage = "transcribing"
	StageTranslating  Stage = "translating"
	StageAnalyzing    Stage = "analyzing_quality"
	StageSynthesizing Stage = "synthesizing"
	StageMerging      Stage = "merging"
	StagePublishing   Stage = "publishing"
)

var stageOrder = []Stage{
	StageNone,
	StageUploading,
	StageTranscribing,
	StageTranslating,
	StageAnalyzing,
	StageSynthesizing,
	StageMerging,
	StagePublishing,
}

var stageOrdinals = func() map[Stage]int {
	ordinals := make(map[Stage]int, len(stageOrder))
	for i, stage := range stageOrder {
		ordinals[stage] = i
	}
	return ordinals
}()

// Ordinal returns the position of the stage in pipeline order, or -1 for an
// unknown stage.
func (s Stage) Ordinal() int {
	if ordinal, ok := stageOrdinals[s]; ok {
		return ordinal
	}
	return -1
}

// IsValid reports whether the stage is one of the recognized values.
func (s Stage) IsValid() bool {
	_, ok := stageOrdinals[s]
	return ok
}

var stageLabels = map[Stage]string{
	StageUploading:    "uploading video",
	StageTranscribing: "transcribing audio",
	StageTranslating:  "translating transcript",
	StageAnalyzing:    "analyzing translation quality",
	StageSynthesizing: "synthesizing narration",
	StageMerging:      "merging audio",
	StagePublishing:   "publishing result",
}

// Label returns the human-readable step description reported by the status
// endpoint while a job is in progress.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// DaemonStopReason is the error message recorded on jobs interrupted by
// daemon shutdown.
const DaemonStopReason = "daemon stopped"

// Job represents one localization request persisted in SQLite.
type Job struct {
	ID             string
	Status         Status
	Stage          Stage
	SourceFilename string
	SourcePath     string
	TargetLang     string
	VideoURI       string
	Transcript     string
	Translation    string
	AnalysisJSON   string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Result is the payload reported for a completed job.
type Result struct {
	VideoURI            string          `json:"video_uri"`
	Transcript          string          `json:"transcript"`
	Translation         string          `json:"translation"`
	TranslationAnalysis json.RawMessage `json:"translation_analysis"`
}

// Result assembles the completion payload. AnalysisJSON that is empty or
// malformed degrades to an empty object rather than breaking the response.
func (j *Job) Result() Result {
	analysis := json.RawMessage(strings.TrimSpace(j.AnalysisJSON))
	if len(analysis) == 0 || !json.Valid(analysis) {
		analysis = json.RawMessage("{}")
	}
	return Result{
		VideoURI:            j.VideoURI,
		Transcript:          j.Transcript,
		Translation:         j.Translation,
		TranslationAnalysis: analysis,
	}
}

// Stats summarizes job counts per lifecycle state.
type Stats struct {
	Total      int
	Starting   int
	InProgress int
	Completed  int
	Failed     int
}
