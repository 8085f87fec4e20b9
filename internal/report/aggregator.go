package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niju646/ReportSystem/internal/model"
)

var (
	ErrInvalidNotificationID = errors.New("notification id must be a positive integer")
	ErrNoStatusRecords       = errors.New("no status records found")
)

// Store is the read-only slice of the status-log store the aggregator
// needs. Rows come back ordered by update time, most recent first.
type Store interface {
	ListStatusLogs(ctx context.Context, notificationID int64) ([]model.StatusLogEntry, error)
}

type StatusEntry struct {
	Type         string  `json:"type"`
	Recipient    string  `json:"recipient"`
	MessageSid   string  `json:"messageSid"`
	Status       string  `json:"status"`
	DateUpdated  string  `json:"dateUpdated"`
	ErrorMessage *string `json:"errorMessage"`
}

type Summary struct {
	Delivered int `json:"delivered"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

type Report struct {
	NotificationID int64         `json:"notificationId"`
	Statuses       []StatusEntry `json:"statuses"`
	Total          int           `json:"total"`
	Summary        Summary       `json:"summary"`
}

type Aggregator struct {
	store    Store
	redis    *redis.Client
	cacheTTL time.Duration
	log      *zap.SugaredLogger
}

// NewAggregator builds a report aggregator. redisClient may be nil, in
// which case responses are computed fresh on every call.
func NewAggregator(store Store, redisClient *redis.Client, cacheTTL time.Duration, log *zap.SugaredLogger) *Aggregator {
	return &Aggregator{store: store, redis: redisClient, cacheTTL: cacheTTL, log: log}
}

func (a *Aggregator) GetReport(ctx context.Context, notificationID int64) (*Report, error) {
	if notificationID <= 0 {
		return nil, ErrInvalidNotificationID
	}

	if cached := a.fromCache(ctx, notificationID); cached != nil {
		return cached, nil
	}

	entries, err := a.store.ListStatusLogs(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("listing status logs: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoStatusRecords
	}

	report := buildReport(notificationID, entries)
	a.toCache(ctx, notificationID, report)
	return report, nil
}

func buildReport(notificationID int64, entries []model.StatusLogEntry) *Report {
	statuses := make([]StatusEntry, 0, len(entries))
	var summary Summary
	for _, entry := range entries {
		statuses = append(statuses, StatusEntry{
			Type:         entry.Type,
			Recipient:    entry.Recipient,
			MessageSid:   entry.MessageSID,
			Status:       entry.Status,
			DateUpdated:  entry.DateUpdated.UTC().Format(time.RFC3339),
			ErrorMessage: entry.ErrorMessage,
		})
		switch classifyStatus(entry.Status) {
		case bucketDelivered:
			summary.Delivered++
		case bucketSent:
			summary.Sent++
		case bucketFailed:
			summary.Failed++
		case bucketPending:
			summary.Pending++
		}
	}
	return &Report{
		NotificationID: notificationID,
		Statuses:       statuses,
		Total:          len(entries),
		Summary:        summary,
	}
}

type bucket int

const (
	bucketNone bucket = iota
	bucketDelivered
	bucketSent
	bucketFailed
	bucketPending
)

// statusBuckets is deliberately non-exhaustive: the delivery provider's
// status vocabulary grows over time, and unknown statuses count toward no
// bucket while still appearing in the row listing.
var statusBuckets = map[string]bucket{
	"delivered": bucketDelivered,
	"read":      bucketDelivered,
	"sent":      bucketSent,
	"failed":    bucketFailed,
	"queued":    bucketPending,
	"sending":   bucketPending,
}

func classifyStatus(status string) bucket {
	return statusBuckets[status]
}

func cacheKey(notificationID int64) string {
	return fmt.Sprintf("report:%d", notificationID)
}

func (a *Aggregator) fromCache(ctx context.Context, notificationID int64) *Report {
	if a.redis == nil {
		return nil
	}
	raw, err := a.redis.Get(ctx, cacheKey(notificationID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			a.log.Debugw("report cache read failed", "notification_id", notificationID, "reason", err)
		}
		return nil
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		a.log.Debugw("report cache entry corrupt", "notification_id", notificationID, "reason", err)
		return nil
	}
	return &report
}

func (a *Aggregator) toCache(ctx context.Context, notificationID int64, report *Report) {
	if a.redis == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := a.redis.Set(ctx, cacheKey(notificationID), raw, a.cacheTTL).Err(); err != nil {
		a.log.Debugw("report cache write failed", "notification_id", notificationID, "reason", err)
	}
}
