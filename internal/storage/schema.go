// ABOUTME: Schema DDL fragments and the current-version table set.
// ABOUTME: Fragments are shared between fresh installs and migration steps.
package storage

// schemaVersion is the current schema version, tracked in PRAGMA
// user_version. Bump it when adding a migration step.
const schemaVersion = 12

// Base tables (v1).
const sqlCreateMetrics = `
	CREATE TABLE metrics (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		value REAL NOT NULL DEFAULT 0,
		timezone TEXT NOT NULL DEFAULT ''
	)`

// v2: rows are tagged with the UTC offset their 24h window was computed for.
const sqlMetricsAddResetHour = `ALTER TABLE metrics ADD COLUMN reset_hour INTEGER NOT NULL DEFAULT 0`

// v3: string-valued series (screen-time aggregates) share the metrics table.
const sqlMetricsAddValueText = `ALTER TABLE metrics ADD COLUMN value_text TEXT NOT NULL DEFAULT ''`

// v4: questionnaire catalog, pending responses, cohort cache.
const sqlCreateQuestionnaires = `
	CREATE TABLE questionnaires (
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		code TEXT NOT NULL,
		cohort_id TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (id, cohort_id)
	)`

const sqlCreateQuestionnaireResponses = `
	CREATE TABLE questionnaire_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		created INTEGER NOT NULL,
		response TEXT NOT NULL
	)`

const sqlCreateCohorts = `
	CREATE TABLE cohorts (
		id TEXT PRIMARY KEY,
		privacy_policy TEXT,
		title TEXT,
		data_pattern TEXT,
		gps_resolution INTEGER NOT NULL DEFAULT 0,
		can_withdraw INTEGER NOT NULL DEFAULT 0,
		sync_on_screen_off INTEGER,
		perimeter_check INTEGER,
		perm_app_id INTEGER,
		perm_draw_over INTEGER,
		perm_location INTEGER,
		perm_contact INTEGER
	)`

// v7: journal, confidence intervals, raw telemetry batches.
const sqlCreateJournalEntries = `
	CREATE TABLE journal_entries (
		id TEXT PRIMARY KEY,
		note TEXT NOT NULL,
		device_id TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		sync INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		old_id TEXT NOT NULL DEFAULT ''
	)`

const sqlCreateJournalEvents = `
	CREATE TABLE journal_events (
		id TEXT PRIMARY KEY,
		public_name TEXT NOT NULL,
		icon_name TEXT NOT NULL,
		created TEXT NOT NULL DEFAULT '',
		modified TEXT NOT NULL DEFAULT ''
	)`

const sqlCreateJournalEntryEvents = `
	CREATE TABLE journal_entry_events (
		id TEXT PRIMARY KEY,
		journal_entry_id TEXT NOT NULL,
		journal_event_id TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT -1
	)`

const sqlMetricsAddCILow = `ALTER TABLE metrics ADD COLUMN ci_low REAL`
const sqlMetricsAddCIHigh = `ALTER TABLE metrics ADD COLUMN ci_high REAL`
const sqlMetricsAddConfidence = `ALTER TABLE metrics ADD COLUMN confidence REAL`

const sqlCreateTapSessions = `
	CREATE TABLE tap_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taps TEXT NOT NULL,
		start INTEGER NOT NULL,
		stop INTEGER NOT NULL,
		orientations TEXT NOT NULL DEFAULT '[]',
		app_ids TEXT NOT NULL DEFAULT '[]',
		taps_total INTEGER NOT NULL DEFAULT 0,
		length INTEGER NOT NULL DEFAULT 0,
		timezone TEXT NOT NULL DEFAULT '',
		in_charge INTEGER NOT NULL DEFAULT 0,
		sync INTEGER NOT NULL DEFAULT 0
	)`

const sqlCreateDeviceHealth = `
	CREATE TABLE device_health (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamps TEXT NOT NULL,
		charge TEXT NOT NULL,
		events TEXT NOT NULL,
		start INTEGER NOT NULL,
		stop INTEGER NOT NULL,
		sync INTEGER NOT NULL DEFAULT 0
	)`

// v8: resolved sleep episodes, app-code catalog, hourly tap aggregates.
const sqlCreateSleepSummaries = `
	CREATE TABLE sleep_summaries (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		sleep_start INTEGER NOT NULL,
		sleep_end INTEGER NOT NULL,
		int_starts TEXT NOT NULL DEFAULT '[]',
		int_ends TEXT NOT NULL DEFAULT '[]',
		int_taps TEXT NOT NULL DEFAULT '[]',
		timezone_id TEXT NOT NULL DEFAULT ''
	)`

const sqlCreateAppCodes = `
	CREATE TABLE app_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sync INTEGER NOT NULL DEFAULT 0
	)`

const sqlCreateHourlyTaps = `
	CREATE TABLE hourly_taps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date_tap TEXT NOT NULL,
		hour INTEGER NOT NULL,
		num_taps INTEGER NOT NULL DEFAULT 0,
		speed REAL NOT NULL DEFAULT 0
	)`

// v9: derived trend statistics.
const sqlCreateTrends = `
	CREATE TABLE trends (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		timezone TEXT NOT NULL DEFAULT '',
		reset_hour INTEGER NOT NULL DEFAULT 0,
		diff_2w REAL, stat_2w REAL, sign_2w REAL,
		diff_6w REAL, stat_6w REAL, sign_6w REAL,
		diff_1y REAL, stat_1y REAL, sign_1y REAL
	)`

// v10: activity recognition transitions.
const sqlCreateActivityTransitions = `
	CREATE TABLE activity_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		action TEXT NOT NULL,
		transition TEXT NOT NULL,
		sync INTEGER NOT NULL DEFAULT 0
	)`

// v11: cognitive mini-game results; cohorts learn the cognitive-test flag.
const sqlCreateCognitiveTests = `
	CREATE TABLE cognitive_test_results (
		id TEXT PRIMARY KEY,
		test_type TEXT NOT NULL,
		results TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		local_time TEXT NOT NULL,
		sync INTEGER NOT NULL DEFAULT 0
	)`

const sqlCohortsAddCognitiveTest = `ALTER TABLE cohorts ADD COLUMN enable_cognitive_test INTEGER NOT NULL DEFAULT 0`

// v12: questionnaires carry their estimated completion time.
const sqlQuestionnairesAddCompletionMinutes = `ALTER TABLE questionnaires ADD COLUMN completion_minutes INTEGER NOT NULL DEFAULT 5`

const sqlCreateIndexes = `
	CREATE INDEX IF NOT EXISTS idx_metrics_code_ts ON metrics(code, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_trends_code_ts ON trends(code, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_journal_sync ON journal_entries(sync, deleted);
	CREATE INDEX IF NOT EXISTS idx_tap_sessions_sync ON tap_sessions(sync);
	CREATE INDEX IF NOT EXISTS idx_device_health_sync ON device_health(sync);
	CREATE INDEX IF NOT EXISTS idx_activity_sync ON activity_transitions(sync);
`

// freshSchema is every DDL fragment in order, producing a current-version
// store on a fresh install.
var freshSchema = []string{
	sqlCreateMetrics,
	sqlMetricsAddResetHour,
	sqlMetricsAddValueText,
	sqlCreateQuestionnaires,
	sqlCreateQuestionnaireResponses,
	sqlCreateCohorts,
	sqlCreateJournalEntries,
	sqlCreateJournalEvents,
	sqlCreateJournalEntryEvents,
	sqlMetricsAddCILow,
	sqlMetricsAddCIHigh,
	sqlMetricsAddConfidence,
	sqlCreateTapSessions,
	sqlCreateDeviceHealth,
	sqlCreateSleepSummaries,
	sqlCreateAppCodes,
	sqlCreateHourlyTaps,
	sqlCreateTrends,
	sqlCreateActivityTransitions,
	sqlCreateCognitiveTests,
	sqlCohortsAddCognitiveTest,
	sqlQuestionnairesAddCompletionMinutes,
}
