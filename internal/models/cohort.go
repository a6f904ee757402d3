// ABOUTME: Cohort (study) model cached locally for offline display.
// ABOUTME: Carries the permission and sync flags granted by the cohort.
package models

// Cohort is a study the device is enrolled in. Cached on enrollment and on
// participation refresh so the host can render it offline.
type Cohort struct {
	ID            string
	PrivacyPolicy string
	Title         string
	DataPattern   string
	GPSResolution int
	CanWithdraw   bool

	SyncOnScreenOff bool
	PerimeterCheck  bool

	// Permission flags the cohort requires from the device.
	PermAppID    bool
	PermDrawOver bool
	PermLocation bool
	PermContact  bool

	// EnableCognitiveTest gates the cognitive mini-games for this cohort.
	EnableCognitiveTest bool
}

// Participation is one enrollment record: the server-side participation id
// plus the cohort it belongs to.
type Participation struct {
	ID     string
	Cohort *Cohort
}
