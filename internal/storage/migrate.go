// ABOUTME: Versioned schema migrations with non-contiguous jump paths.
// ABOUTME: Applies exactly one path per install, transactionally, never back.
package storage

import (
	"fmt"
	"sort"
)

// migration is one additive DDL step from schema version From to To.
// Installs can skip several app versions, so jump steps (e.g. 3 to 8)
// exist alongside the single-version ones.
type migration struct {
	From, To int
	Scripts  []string
}

// migrations mirrors the store's historical evolution. Version 5 was an
// internal-only build that never shipped, so no path starts there.
var migrations = []migration{
	{1, 2, []string{sqlMetricsAddResetHour}},
	{2, 3, []string{sqlMetricsAddValueText}},
	{3, 4, []string{sqlCreateQuestionnaires, sqlCreateQuestionnaireResponses, sqlCreateCohorts}},

	{1, 7, concat(from1to3, from3to4, from4to7)},
	{2, 7, concat(from2to3, from3to4, from4to7)},
	{3, 7, concat(from3to4, from4to7)},
	{4, 7, from4to7},
	{3, 8, concat(from3to4, from4to7, from7to8)},
	{4, 8, concat(from4to7, from7to8)},
	{6, 7, from4to7},
	{6, 8, concat(from4to7, from7to8)},
	{7, 8, from7to8},

	{8, 9, []string{sqlCreateTrends}},
	{7, 10, concat(from7to8, []string{sqlCreateTrends, sqlCreateActivityTransitions})},
	{8, 10, []string{sqlCreateTrends, sqlCreateActivityTransitions}},
	{9, 10, []string{sqlCreateActivityTransitions}},

	{10, 11, []string{sqlCreateCognitiveTests, sqlCohortsAddCognitiveTest}},
	{11, 12, []string{sqlQuestionnairesAddCompletionMinutes}},
}

var (
	from1to3 = []string{sqlMetricsAddResetHour, sqlMetricsAddValueText}
	from2to3 = []string{sqlMetricsAddValueText}
	from3to4 = []string{sqlCreateQuestionnaires, sqlCreateQuestionnaireResponses, sqlCreateCohorts}
	from4to7 = []string{
		sqlCreateJournalEntries, sqlCreateJournalEvents, sqlCreateJournalEntryEvents,
		sqlMetricsAddCILow, sqlMetricsAddCIHigh, sqlMetricsAddConfidence,
		sqlCreateTapSessions, sqlCreateDeviceHealth,
	}
	from7to8 = []string{sqlCreateSleepSummaries, sqlCreateAppCodes, sqlCreateHourlyTaps}
)

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// migrate brings the opened store to schemaVersion. A fresh store gets the
// current schema directly; a versioned store walks one migration path.
// Any failure rolls back the transaction and is fatal to initialization.
func (s *Store) migrate() error {
	v, err := s.version()
	if err != nil {
		return err
	}

	switch {
	case v == 0:
		if err := s.applyScripts(freshSchema, schemaVersion); err != nil {
			return err
		}
	case v == schemaVersion:
		// up to date
	case v > schemaVersion:
		return fmt.Errorf("store schema version %d is newer than supported %d", v, schemaVersion)
	default:
		path, err := migrationPath(v, schemaVersion)
		if err != nil {
			return err
		}
		for _, step := range path {
			if err := s.applyScripts(step.Scripts, step.To); err != nil {
				return fmt.Errorf("migrate %d to %d: %w", step.From, step.To, err)
			}
		}
	}

	// Indexes are idempotent and not part of the versioned history.
	if _, err := s.db.Exec(sqlCreateIndexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// migrationPath finds the shortest declared step sequence from one version
// to another. Ties prefer the larger first jump so the chosen path is
// deterministic.
func migrationPath(from, to int) ([]migration, error) {
	byFrom := map[int][]migration{}
	for _, m := range migrations {
		byFrom[m.From] = append(byFrom[m.From], m)
	}
	for v := range byFrom {
		sort.Slice(byFrom[v], func(a, b int) bool {
			return byFrom[v][a].To > byFrom[v][b].To
		})
	}

	type node struct {
		version int
		path    []migration
	}
	queue := []node{{version: from}}
	seen := map[int]bool{from: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.version == to {
			return cur.path, nil
		}
		for _, m := range byFrom[cur.version] {
			if m.To > to || seen[m.To] {
				continue
			}
			seen[m.To] = true
			next := make([]migration, len(cur.path), len(cur.path)+1)
			copy(next, cur.path)
			queue = append(queue, node{version: m.To, path: append(next, m)})
		}
	}
	return nil, fmt.Errorf("no migration path from schema version %d to %d", from, to)
}

// applyScripts runs DDL in one transaction and stamps the new version.
func (s *Store) applyScripts(scripts []string, version int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for _, script := range scripts {
		if _, err := tx.Exec(script); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration script: %w", err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("stamp schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
