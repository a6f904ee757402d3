// ABOUTME: Raw telemetry models: tap sessions, device health, activity
// ABOUTME: transitions and the installed-app code catalog.
package models

// TapSessionRecord is one touchscreen interaction session awaiting batch
// submission. Tap timestamps and per-tap app indices are stored as JSON
// arrays; Start doubles as the natural key the outbox marks synced by.
type TapSessionRecord struct {
	ID           int64  // local autoincrement
	Taps         string // JSON array of unix millis
	Start        int64  // unix millis
	Stop         int64  // unix millis
	Orientations string // JSON array of screen orientations per tap
	AppIDs       string // JSON array-of-arrays, app code per tap per layer
	TapsTotal    int64
	Length       int64 // session length millis
	Timezone     string
	InCharge     int // charging state during the session
	Sync         int
}

// DeviceHealthRecord is one batch of device vitals samples.
type DeviceHealthRecord struct {
	ID         int64
	Timestamps string // JSON array of unix millis
	Charge     string // JSON array of battery levels
	Events     string // JSON array of power events
	Start      int64
	Stop       int64
	Sync       int
}

// ActivityTransitionRecord is one detected activity change (e.g. still to
// walking) from the platform's activity recognizer.
type ActivityTransitionRecord struct {
	ID         int64
	Timestamp  int64 // unix millis, natural key for sync marking
	Action     string
	Transition string
	Sync       int
}

// AppCode maps an installed application to the numeric code used in tap
// session payloads. Pushed once per app, then marked synced.
type AppCode struct {
	ID   int64
	Name string
	Sync int
}
