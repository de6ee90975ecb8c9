package rest

import "github.com/dmitrymomot/pubsub/core/broker"

// CreateTopicRequest is the body of POST /topics.
type CreateTopicRequest struct {
	Name string `json:"name"`
}

// CreateTopicResponse confirms a topic creation.
type CreateTopicResponse struct {
	Status string `json:"status"`
	Topic  string `json:"topic"`
}

// DeleteTopicResponse confirms a topic deletion.
type DeleteTopicResponse struct {
	Status string `json:"status"`
	Topic  string `json:"topic"`
}

// ListTopicsResponse lists all live topics.
type ListTopicsResponse struct {
	Topics []broker.TopicInfo `json:"topics"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	UptimeSec   int64 `json:"uptime_sec"`
	Topics      int   `json:"topics"`
	Subscribers int   `json:"subscribers"`
}

// StatsResponse reports per-topic statistics.
type StatsResponse struct {
	Topics map[string]broker.TopicStats `json:"topics"`
}

// ErrorResponse is the envelope for every error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
