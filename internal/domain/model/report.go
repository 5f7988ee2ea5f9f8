package model

// DeliveryReport aggregates the outcome of one fan-out pass.
// Matched counts attempts; Delivered counts confirmed successes.
type DeliveryReport struct {
	Matched   int
	Delivered int
	Failed    int
	Errors    []*DeliveryError
}

// Merge folds other into r.
func (r *DeliveryReport) Merge(other DeliveryReport) {
	r.Matched += other.Matched
	r.Delivered += other.Delivered
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// BroadcastFailure records an event that could not be published to its topic.
type BroadcastFailure struct {
	EventID string
	Topic   string
	Err     error
}

// BatchReport is the result of processing one batch end to end.
type BatchReport struct {
	BatchID           string
	Archived          int
	Delivery          DeliveryReport
	Broadcast         int
	BroadcastFailures []BroadcastFailure
}

// IngestResult summarises one asynchronous ingestion.
type IngestResult struct {
	BatchID    string `json:"batchId,omitempty"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}
