// ABOUTME: Outbox jobs for telemetry batches, the app-code catalog, hourly
// ABOUTME: typing stats, device updates and cohort enrollment.
package outbox

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/storage"
)

// tapBatchLimit bounds one tap-session submission.
const tapBatchLimit = 50

// TapSessionJob pushes a bounded batch of interaction sessions. Partial
// rejections name sessions by their start instant; those rows are dropped
// and the remainder resubmits on the next attempt.
type TapSessionJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *TapSessionJob) Key() string { return "tap-session-push" }

func (j *TapSessionJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingTapSessions(tapBatchLimit)
	if err != nil {
		j.Logger.Error("read pending tap sessions", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.TapSessionPayload, 0, len(pending))
	starts := make([]int64, 0, len(pending))
	for _, r := range pending {
		starts = append(starts, r.Start)
		payloads = append(payloads, api.TapSessionPayload{
			Taps: r.Taps, Start: r.Start, Stop: r.Stop,
			Orientations: r.Orientations, AppIDs: r.AppIDs,
			TapsTotal: r.TapsTotal, Length: r.Length,
			Timezone: r.Timezone, InCharge: r.InCharge,
		})
	}

	err = j.Client.PushTapSessions(ctx, payloads)
	if apiErr := api.AsError(err); apiErr != nil && apiErr.PartialRejection() {
		var invalid []int64
		for _, rec := range apiErr.Details.InvalidRecords {
			invalid = append(invalid, rec.Start)
		}
		if err := j.Store.DeleteTapSessions(invalid); err != nil {
			j.Logger.Error("drop rejected tap sessions", "err", err)
			return Retry
		}
		j.Logger.Warn("server rejected tap sessions, dropped locally", "count", len(invalid))
		if len(invalid) >= len(pending) {
			return Success
		}
		return Retry
	}
	if result := classify(err); result != Success {
		return result
	}

	if err := j.Store.MarkTapSessionsSynced(starts); err != nil {
		j.Logger.Error("mark tap sessions synced", "err", err)
		return Retry
	}
	// More sessions may wait beyond the batch limit; signal retry so the
	// scheduler runs another pass.
	if len(pending) == tapBatchLimit {
		return Retry
	}
	return Success
}

// DeviceHealthJob pushes queued vitals batches.
type DeviceHealthJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *DeviceHealthJob) Key() string { return "device-health-push" }

func (j *DeviceHealthJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingDeviceHealth()
	if err != nil {
		j.Logger.Error("read pending device health", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.DeviceHealthPayload, 0, len(pending))
	starts := make([]int64, 0, len(pending))
	for _, r := range pending {
		starts = append(starts, r.Start)
		payloads = append(payloads, api.DeviceHealthPayload{
			Timestamps: r.Timestamps, Charge: r.Charge, Events: r.Events,
			Start: r.Start, Stop: r.Stop,
		})
	}

	if result := classify(j.Client.PushDeviceHealth(ctx, payloads)); result != Success {
		return result
	}
	if err := j.Store.MarkDeviceHealthSynced(starts); err != nil {
		j.Logger.Error("mark device health synced", "err", err)
		return Retry
	}
	return Success
}

// ActivityJob pushes queued activity transitions.
type ActivityJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *ActivityJob) Key() string { return "activity-push" }

func (j *ActivityJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingActivityTransitions()
	if err != nil {
		j.Logger.Error("read pending activity transitions", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.ActivityTransitionPayload, 0, len(pending))
	timestamps := make([]int64, 0, len(pending))
	for _, r := range pending {
		timestamps = append(timestamps, r.Timestamp)
		payloads = append(payloads, api.ActivityTransitionPayload{
			Timestamp: r.Timestamp, Action: r.Action, Transition: r.Transition,
		})
	}

	if result := classify(j.Client.PushActivityTransitions(ctx, payloads)); result != Success {
		return result
	}
	if err := j.Store.MarkActivityTransitionsSynced(timestamps); err != nil {
		j.Logger.Error("mark activity transitions synced", "err", err)
		return Retry
	}
	return Success
}

// AppCodeJob pushes new app-code catalog rows so the server can decode
// tap-session app indices.
type AppCodeJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
}

func (j *AppCodeJob) Key() string { return "app-code-push" }

func (j *AppCodeJob) Run(ctx context.Context) Result {
	pending, err := j.Store.PendingAppCodes()
	if err != nil {
		j.Logger.Error("read pending app codes", "err", err)
		return Retry
	}
	if len(pending) == 0 {
		return Success
	}

	payloads := make([]api.AppCodePayload, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, r := range pending {
		ids = append(ids, r.ID)
		payloads = append(payloads, api.AppCodePayload{Code: r.ID, Name: r.Name})
	}

	if result := classify(j.Client.PushAppCodes(ctx, payloads)); result != Success {
		return result
	}
	if err := j.Store.MarkAppCodesSynced(ids); err != nil {
		j.Logger.Error("mark app codes synced", "err", err)
		return Retry
	}
	return Success
}

// HourlyStatsJob pushes the previous day's per-hour typing aggregates and
// prunes aggregates older than the retention window.
type HourlyStatsJob struct {
	Store  *storage.Store
	Client *api.Client
	Logger *log.Logger
	Now    func() time.Time
}

func (j *HourlyStatsJob) Key() string { return "hourly-stats-push" }

func (j *HourlyStatsJob) Run(ctx context.Context) Result {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	yesterday := now().AddDate(0, 0, -1).Format("2006-01-02")

	counts, speeds, err := j.Store.HourlyTapsForDate(yesterday)
	if err != nil {
		j.Logger.Error("read hourly taps", "err", err)
		return Retry
	}
	if len(counts) > 0 {
		payload := api.HourlyStatsPayload{Date: yesterday, Hours: counts, Speeds: speeds}
		if result := classify(j.Client.PushHourlyStats(ctx, payload)); result != Success {
			return result
		}
	}

	cutoff := now().AddDate(0, 0, -7).Format("2006-01-02")
	if err := j.Store.PruneHourlyTaps(cutoff); err != nil {
		j.Logger.Error("prune hourly taps", "err", err)
	}
	return Success
}

// DeviceUpdateJob pushes refreshed device properties after an OS update,
// timezone change or app upgrade.
type DeviceUpdateJob struct {
	Client *api.Client
	Logger *log.Logger
	Info   api.DeviceInfo
}

func (j *DeviceUpdateJob) Key() string { return "device-update" }

func (j *DeviceUpdateJob) Run(ctx context.Context) Result {
	err := j.Client.UpdateDevice(ctx, j.Info)
	if result := classify(err); result != Success {
		j.Logger.Warn("device update failed", "err", err)
		return result
	}
	return Success
}

// CohortSignupJob enrolls the identity in one cohort and caches its
// definition plus questionnaire catalog. The key includes the cohort so
// signups for different cohorts run independently while duplicates for the
// same cohort collapse.
type CohortSignupJob struct {
	Store      *storage.Store
	Client     *api.Client
	Logger     *log.Logger
	CohortID   string
	IdentityID string
}

func (j *CohortSignupJob) Key() string { return "cohort-signup:" + j.CohortID }

func (j *CohortSignupJob) Run(ctx context.Context) Result {
	cohort, err := j.Client.SignUp(ctx, j.CohortID, j.IdentityID)
	if api.IsConflict(err) {
		// Already enrolled; fetch the definition instead.
		cohort, err = j.Client.Cohort(ctx, j.CohortID)
	}
	if result := classify(err); result != Success {
		return result
	}

	if err := j.Store.UpsertCohort(cohort); err != nil {
		j.Logger.Error("cache cohort", "cohort", j.CohortID, "err", err)
		return Retry
	}
	qs, err := j.Client.Questionnaires(ctx, j.CohortID)
	if result := classify(err); result != Success {
		return result
	}
	if err := j.Store.ReplaceQuestionnaires(j.CohortID, qs); err != nil {
		j.Logger.Error("cache questionnaires", "cohort", j.CohortID, "err", err)
		return Retry
	}
	return Success
}

// ParticipationRecorder receives the participation id on first resolution.
// The credential store implements it.
type ParticipationRecorder interface {
	ParticipationID() string
	SetParticipationID(id string)
	Save() error
}

// ParticipationRefreshJob reconciles enrollment with the server: cohorts
// the identity participates in are cached locally and the participation id
// is recorded the first time the server resolves one.
type ParticipationRefreshJob struct {
	Store      *storage.Store
	Client     *api.Client
	Logger     *log.Logger
	Creds      ParticipationRecorder
	IdentityID string
}

func (j *ParticipationRefreshJob) Key() string { return "participation-refresh" }

func (j *ParticipationRefreshJob) Run(ctx context.Context) Result {
	participations, err := j.Client.Participations(ctx, j.IdentityID)
	if result := classify(err); result != Success {
		return result
	}
	for _, p := range participations {
		if err := j.Store.UpsertCohort(p.Cohort); err != nil {
			j.Logger.Error("cache cohort", "cohort", p.Cohort.ID, "err", err)
			return Retry
		}
	}
	if len(participations) > 0 && j.Creds.ParticipationID() == "" {
		j.Creds.SetParticipationID(participations[0].ID)
		if err := j.Creds.Save(); err != nil {
			j.Logger.Error("persist participation id", "err", err)
			return Retry
		}
	}
	return Success
}

// CohortWithdrawJob leaves a cohort and drops its local cache. A 404 from
// the server means the enrollment was already gone.
type CohortWithdrawJob struct {
	Store      *storage.Store
	Client     *api.Client
	Logger     *log.Logger
	CohortID   string
	IdentityID string
}

func (j *CohortWithdrawJob) Key() string { return "cohort-withdraw:" + j.CohortID }

func (j *CohortWithdrawJob) Run(ctx context.Context) Result {
	err := j.Client.Withdraw(ctx, j.CohortID, j.IdentityID)
	if err != nil && !api.IsNotFound(err) {
		if result := classify(err); result != Success {
			return result
		}
	}
	if err := j.Store.DeleteCohort(j.CohortID); err != nil {
		j.Logger.Error("drop cohort cache", "cohort", j.CohortID, "err", err)
		return Retry
	}
	return Success
}
