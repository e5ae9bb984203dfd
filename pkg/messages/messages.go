package messages

import (
	"encoding/json"

	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

type QueueMessage struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id"`
	Payload   json.RawMessage `json:"payload"`
}

// EvaluateQueueMessage is the payload of an "evaluate" message.
type EvaluateQueueMessage struct {
	submission.Input
}

type ResponseQueueMessage struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id"`
	Ok        bool            `json:"ok"`
	Payload   json.RawMessage `json:"payload"`
}

type WorkerStatus struct {
	WorkerID            int                    `json:"worker_id"`
	Status              constants.WorkerStatus `json:"status"`
	ProcessingMessageID string                 `json:"processing_message_id,omitempty"`
}

// ResponseWorkerStatusPayload is the payload of a "status" response.
type ResponseWorkerStatusPayload struct {
	BusyWorkers  int            `json:"busy_workers"`
	TotalWorkers int            `json:"total_workers"`
	WorkerStatus []WorkerStatus `json:"worker_status"`
}

// ResponseEvaluatePayload is the payload of an "evaluate" response. On
// failure Error is set and Submission carries the failed record, if any.
type ResponseEvaluatePayload struct {
	Submission *submission.Submission `json:"submission,omitempty"`
	Error      string                 `json:"error,omitempty"`
}
