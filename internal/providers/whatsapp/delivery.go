package whatsapp

import (
	"math"
	"time"
)

const (
	ErrorCodeConfig       = "CONFIG_ERROR"
	ErrorCodeInvalidPhone = "INVALID_PHONE"
	ErrorCodeException    = "EXCEPTION"
	ErrorCodeUnknown      = "UNKNOWN"
)

// DeliveryResult is the outcome of one template send to one phone.
type DeliveryResult struct {
	Phone      string    `json:"phone"`
	CleanPhone string    `json:"clean_phone,omitempty"`
	Success    bool      `json:"success"`
	MessageID  string    `json:"message_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

type DeliveryStats struct {
	TotalAttempts        int     `json:"total_attempts"`
	SuccessfulDeliveries int     `json:"successful_deliveries"`
	FailedDeliveries     int     `json:"failed_deliveries"`
	SuccessRate          float64 `json:"success_rate"`
	FailureRate          float64 `json:"failure_rate"`
}

// ErrorGroup aggregates failed deliveries sharing one error code.
type ErrorGroup struct {
	ErrorCode      string   `json:"error_code"`
	ErrorMessage   string   `json:"error_message"`
	Count          int      `json:"count"`
	AffectedPhones []string `json:"affected_phones"`
}

func Stats(results []DeliveryResult) DeliveryStats {
	stats := DeliveryStats{TotalAttempts: len(results)}
	for _, r := range results {
		if r.Success {
			stats.SuccessfulDeliveries++
		}
	}
	stats.FailedDeliveries = stats.TotalAttempts - stats.SuccessfulDeliveries
	if stats.TotalAttempts > 0 {
		total := float64(stats.TotalAttempts)
		stats.SuccessRate = round2(float64(stats.SuccessfulDeliveries) / total * 100)
		stats.FailureRate = round2(float64(stats.FailedDeliveries) / total * 100)
	}
	return stats
}

// UniqueErrors groups failures by error code in first-seen order.
func UniqueErrors(results []DeliveryResult) []ErrorGroup {
	groups := make([]ErrorGroup, 0)
	index := make(map[string]int)
	for _, r := range results {
		if r.Success {
			continue
		}
		code := r.ErrorCode
		if code == "" {
			code = ErrorCodeUnknown
		}
		i, ok := index[code]
		if !ok {
			message := r.Error
			if message == "" {
				message = "unknown error"
			}
			groups = append(groups, ErrorGroup{ErrorCode: code, ErrorMessage: message})
			i = len(groups) - 1
			index[code] = i
		}
		groups[i].Count++
		groups[i].AffectedPhones = append(groups[i].AffectedPhones, r.Phone)
	}
	return groups
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
