package models

import "time"

// ExtractedItem is the raw field bag produced by the extractor for one
// listing article, before persistence. Name and Model may be empty when the
// corresponding nodes are missing; OrderCode and Price are always set.
type ExtractedItem struct {
	OrderCode string
	Name      string
	Model     string
	URL       string
	Price     int64
}

// Observation is the outcome of durably persisting one ExtractedItem:
// the prior stored price (if any) and the preserved notification preference,
// read inside the same transaction that committed the write.
type Observation struct {
	PriorPrice           int64
	PriorFound           bool
	NotificationsEnabled bool
}

// PriceChangeEvent is the payload handed to the notification boundary when a
// watched product's price moved.
type PriceChangeEvent struct {
	OrderCode string `json:"orderCode"`
	Name      string `json:"name"`
	Model     string `json:"model"`
	OldPrice  int64  `json:"oldPrice"`
	NewPrice  int64  `json:"newPrice"`
	URL       string `json:"url"`
}

// RunSummary is what one crawl run reports back instead of an error: how far
// pagination got, how extraction and persistence fared, and whether the run
// was cut short by a page-fetch failure.
type RunSummary struct {
	StartedAt           time.Time `json:"startedAt"`
	FinishedAt          time.Time `json:"finishedAt"`
	TotalPages          int       `json:"totalPages"`
	TotalPagesDefaulted bool      `json:"totalPagesDefaulted"`
	PagesFetched        int       `json:"pagesFetched"`
	ItemsExtracted      int       `json:"itemsExtracted"`
	ItemsPersisted      int       `json:"itemsPersisted"`
	ItemsDropped        int       `json:"itemsDropped"`
	NotificationsSent   int       `json:"notificationsSent"`
	EndedEarly          bool      `json:"endedEarly"`
}

// RunState is the coarse lifecycle of a remotely launched crawl task,
// mirroring the ECS task lastStatus values the orchestrator polls.
type RunState string

const (
	RunStateProvisioning RunState = "PROVISIONING"
	RunStatePending      RunState = "PENDING"
	RunStateRunning      RunState = "RUNNING"
	RunStateStopped      RunState = "STOPPED"
)

// RunStatus is a poll result for one launched crawl task. The diagnostic
// fields are populated only once the task reaches STOPPED.
type RunStatus struct {
	TaskArn    string     `json:"taskArn"`
	Status     RunState   `json:"status"`
	StoppedAt  *time.Time `json:"stoppedAt"`
	StopReason *string    `json:"stopReason"`
	ExitCode   *int32     `json:"exitCode"`
}
