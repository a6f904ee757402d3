// ABOUTME: Read endpoints for metric, trend and sleep history, paged by
// ABOUTME: calendar month, with DTO-to-model conversion.
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/harperreed/sensing/internal/models"
)

// metricDTO is the wire shape of one metric row.
type metricDTO struct {
	Code       string   `json:"code"`
	Timestamp  int64    `json:"timestamp"`
	Value      float64  `json:"value"`
	ValueText  string   `json:"valueText,omitempty"`
	Timezone   string   `json:"timezone"`
	ResetHour  int      `json:"resetHour"`
	CILow      *float64 `json:"confidenceIntervalLow,omitempty"`
	CIHigh     *float64 `json:"confidenceIntervalHigh,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Metrics fetches one month ("2006-01") of rows for a metric code. The
// service precomputes every reset-hour variant, so a month page typically
// holds rows beyond one per day.
func (c *Client) Metrics(ctx context.Context, code models.MetricCode, month string) ([]*models.MetricRecord, error) {
	q := url.Values{"code": {string(code)}, "month": {month}}
	var dtos []metricDTO
	err := c.do(ctx, http.MethodGet, "/v1/metrics", nil, &dtos, requestOpts{query: q})
	if err != nil {
		return nil, err
	}
	out := make([]*models.MetricRecord, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.MetricRecord{
			ID:             models.MetricRecordID(models.MetricCode(d.Code), d.Timestamp),
			Code:           models.MetricCode(d.Code),
			Timestamp:      d.Timestamp,
			Value:          d.Value,
			ValueText:      d.ValueText,
			Timezone:       d.Timezone,
			ResetHour:      d.ResetHour,
			ConfidenceLow:  d.CILow,
			ConfidenceHigh: d.CIHigh,
			Confidence:     d.Confidence,
		})
	}
	return out, nil
}

type trendWindowDTO struct {
	Difference   float64 `json:"difference"`
	Statistic    float64 `json:"statistic"`
	Significance float64 `json:"significance"`
}

type trendDTO struct {
	Code      string         `json:"code"`
	Timestamp int64          `json:"timestamp"`
	Timezone  string         `json:"timezone"`
	ResetHour int            `json:"resetHour"`
	TwoWeeks  trendWindowDTO `json:"twoWeeks"`
	SixWeeks  trendWindowDTO `json:"sixWeeks"`
	OneYear   trendWindowDTO `json:"oneYear"`
}

// Trends fetches one month of derived trend rows for a metric code.
func (c *Client) Trends(ctx context.Context, code models.MetricCode, month string) ([]*models.TrendRecord, error) {
	q := url.Values{"code": {string(code)}, "month": {month}}
	var dtos []trendDTO
	err := c.do(ctx, http.MethodGet, "/v1/trends", nil, &dtos, requestOpts{query: q})
	if err != nil {
		return nil, err
	}
	out := make([]*models.TrendRecord, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.TrendRecord{
			ID:         models.MetricRecordID(models.MetricCode(d.Code), d.Timestamp),
			Code:       models.MetricCode(d.Code),
			Timestamp:  d.Timestamp,
			Timezone:   d.Timezone,
			ResetHour:  d.ResetHour,
			ShortTerm:  models.TrendPoint(d.TwoWeeks),
			MediumTerm: models.TrendPoint(d.SixWeeks),
			LongTerm:   models.TrendPoint(d.OneYear),
		})
	}
	return out, nil
}

type sleepDTO struct {
	ID                 string  `json:"id"`
	Timestamp          int64   `json:"timestamp"`
	SleepStart         int64   `json:"sleepStart"`
	SleepEnd           int64   `json:"sleepEnd"`
	InterruptionStarts []int64 `json:"interruptionStarts"`
	InterruptionEnds   []int64 `json:"interruptionEnds"`
	InterruptionTaps   []int64 `json:"interruptionTaps"`
	TimezoneID         string  `json:"timezoneId"`
}

// SleepSummaries fetches one month of resolved sleep episodes.
func (c *Client) SleepSummaries(ctx context.Context, month string) ([]*models.SleepSummaryRecord, error) {
	q := url.Values{"month": {month}}
	var dtos []sleepDTO
	err := c.do(ctx, http.MethodGet, "/v1/sleep", nil, &dtos, requestOpts{query: q})
	if err != nil {
		return nil, err
	}
	out := make([]*models.SleepSummaryRecord, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, &models.SleepSummaryRecord{
			ID:                 d.ID,
			Timestamp:          d.Timestamp,
			SleepStart:         d.SleepStart,
			SleepEnd:           d.SleepEnd,
			InterruptionStarts: d.InterruptionStarts,
			InterruptionEnds:   d.InterruptionEnds,
			InterruptionTaps:   d.InterruptionTaps,
			TimezoneID:         d.TimezoneID,
		})
	}
	return out, nil
}
