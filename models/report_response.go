package models

// LoadTestReport provides the model for the aggregate report returned to callers
type LoadTestReport struct {
	TotalRequests       int      `json:"totalRequests"`
	SuccessfulRequests  int      `json:"successfulRequests"`
	FailedRequests      int      `json:"failedRequests"`
	AverageResponseTime float64  `json:"averageResponseTime"`
	MinResponseTime     int64    `json:"minResponseTime"`
	MaxResponseTime     int64    `json:"maxResponseTime"`
	RequestsPerSecond   float64  `json:"requestsPerSecond"`
	Errors              []string `json:"errors"`
}

// ErrorResponse is the body of every non 2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}
