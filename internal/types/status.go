package types

import "time"

const PROCCESSED = "PROCESSED"
const FAILED = "FAILED"
const PROCESSING = "PROCESSING"

// ObjectState is a step of the per-object pipeline.
type ObjectState string

const (
	StateListed         ObjectState = "LISTED"
	StateTypeChecked    ObjectState = "TYPE_CHECKED"
	StateDownloaded     ObjectState = "DOWNLOADED"
	StateInspected      ObjectState = "INSPECTED"
	StateScalingChecked ObjectState = "SCALING_CHECKED"
	StateResized        ObjectState = "RESIZED"
	StateUploaded       ObjectState = "UPLOADED"
	StateFailed         ObjectState = "FAILED"
)

// ObjectResult is the outcome of one pipeline run. State is the terminal
// state; FailedAt is the last state reached before a failure.
type ObjectResult struct {
	Key               string           `json:"key"`
	Type              ImageType        `json:"type,omitempty"`
	Status            string           `json:"status"`
	State             ObjectState      `json:"state"`
	FailedAt          ObjectState      `json:"failedAt,omitempty"`
	ErrorKind         string           `json:"errorKind,omitempty"`
	ErrorMsg          string           `json:"errorMsg,omitempty"`
	Scaling           *ScalingDecision `json:"scaling,omitempty"`
	DestinationBucket string           `json:"destinationBucket,omitempty"`
	DestinationKey    string           `json:"destinationKey,omitempty"`
	BytesIn           int              `json:"bytesIn,omitempty"`
	BytesOut          int              `json:"bytesOut,omitempty"`
	Err               error            `json:"-"`
}

// BatchSummary is the single terminal result of one activation.
type BatchSummary struct {
	ActivationID string         `json:"activationId"`
	Bucket       string         `json:"bucket"`
	Prefix       string         `json:"prefix"`
	Status       string         `json:"status"`
	ErrorMsg     string         `json:"errorMsg,omitempty"`
	Listed       int            `json:"listed"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt"`
	Results      []ObjectResult `json:"results"`
}

// StatusMessage is the envelope published on the status exchange.
type StatusMessage struct {
	Pattern string       `json:"pattern"`
	Data    BatchSummary `json:"data"`
}

// ActivationResponse is returned by the Lambda entry point.
type ActivationResponse struct {
	StatusCode int           `json:"statusCode"`
	Body       *BatchSummary `json:"body"`
}
