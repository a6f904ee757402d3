// ABOUTME: Concrete reconciled kinds binding the store and the API client:
// ABOUTME: metrics and trends per code, sleep episodes as one kind.
package recon

import (
	"context"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/models"
	"github.com/harperreed/sensing/internal/storage"
)

// MetricKind reconciles one metric code.
type MetricKind struct {
	Store  *storage.Store
	Client *api.Client
	Code   models.MetricCode
}

func (k *MetricKind) Local(from, to int64) ([]*models.MetricRecord, error) {
	return k.Store.MetricsBetween(k.Code, from, to)
}

func (k *MetricKind) LatestTimestamp() (int64, error) {
	return k.Store.LatestMetricTimestamp(k.Code)
}

func (k *MetricKind) Fetch(ctx context.Context, month string) ([]*models.MetricRecord, error) {
	return k.Client.Metrics(ctx, k.Code, month)
}

func (k *MetricKind) Merge(rows []*models.MetricRecord) error {
	return k.Store.UpsertMetrics(rows)
}

// TrendKind reconciles one metric code's derived trends.
type TrendKind struct {
	Store  *storage.Store
	Client *api.Client
	Code   models.MetricCode
}

func (k *TrendKind) Local(from, to int64) ([]*models.TrendRecord, error) {
	return k.Store.TrendsBetween(k.Code, from, to)
}

func (k *TrendKind) LatestTimestamp() (int64, error) {
	return k.Store.LatestTrendTimestamp(k.Code)
}

func (k *TrendKind) Fetch(ctx context.Context, month string) ([]*models.TrendRecord, error) {
	return k.Client.Trends(ctx, k.Code, month)
}

func (k *TrendKind) Merge(rows []*models.TrendRecord) error {
	return k.Store.UpsertTrends(rows)
}

// SleepKind reconciles resolved sleep episodes.
type SleepKind struct {
	Store  *storage.Store
	Client *api.Client
}

func (k *SleepKind) Local(from, to int64) ([]*models.SleepSummaryRecord, error) {
	return k.Store.SleepSummariesBetween(from, to)
}

func (k *SleepKind) LatestTimestamp() (int64, error) {
	return k.Store.LatestSleepTimestamp()
}

func (k *SleepKind) Fetch(ctx context.Context, month string) ([]*models.SleepSummaryRecord, error) {
	return k.Client.SleepSummaries(ctx, month)
}

func (k *SleepKind) Merge(rows []*models.SleepSummaryRecord) error {
	return k.Store.UpsertSleepSummaries(rows)
}
