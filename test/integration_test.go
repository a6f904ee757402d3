// ABOUTME: Integration tests for the sensing CLI.
// ABOUTME: Exercises offline-capable commands end to end against a temp store.
package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestOfflineWorkflow(t *testing.T) {
	projectRoot, _ := filepath.Abs("..")
	binary := filepath.Join(projectRoot, "sensing")

	buildCmd := exec.Command("go", "build", "-o", binary, "./cmd/sensing")
	buildCmd.Dir = projectRoot
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build: %v\n%s", err, output)
	}
	defer os.Remove(binary)

	// Temp data and config dirs keep the run isolated from any real store.
	tmpDir := t.TempDir()
	run := func(args ...string) (string, error) {
		cmd := exec.Command(binary, args...)
		cmd.Env = append(os.Environ(),
			"SENSING_DATA_DIR="+filepath.Join(tmpDir, "data"),
			"XDG_CONFIG_HOME="+filepath.Join(tmpDir, "config"),
		)
		output, err := cmd.CombinedOutput()
		return string(output), err
	}

	// A fresh store reports nothing registered and nothing pending.
	output, err := run("status")
	if err != nil {
		t.Fatalf("Failed to get status: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Not registered") {
		t.Errorf("Expected 'Not registered' in status output, got: %s", output)
	}
	if !strings.Contains(output, "Outbox empty") {
		t.Errorf("Expected 'Outbox empty' in status output, got: %s", output)
	}

	// Journal entries queue locally without a network.
	output, err = run("journal", "add", "long run, slept badly")
	if err != nil {
		t.Fatalf("Failed to add journal entry: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Entry saved") {
		t.Errorf("Expected 'Entry saved' in output, got: %s", output)
	}

	output, err = run("journal", "list")
	if err != nil {
		t.Fatalf("Failed to list journal: %v\n%s", err, output)
	}
	if !strings.Contains(output, "long run, slept badly") {
		t.Errorf("Expected note in journal list, got: %s", output)
	}
	if !strings.Contains(output, "pending") {
		t.Errorf("Expected pending marker in journal list, got: %s", output)
	}

	// Cognitive results queue too.
	output, err = run("test", "pvt", "231,245,198,310", "--lapses", "1")
	if err != nil {
		t.Fatalf("Failed to record pvt result: %v\n%s", err, output)
	}
	if !strings.Contains(output, "pvt result recorded") {
		t.Errorf("Expected 'pvt result recorded' in output, got: %s", output)
	}

	// Status now shows both queues.
	output, err = run("status")
	if err != nil {
		t.Fatalf("Failed to get status: %v\n%s", err, output)
	}
	if !strings.Contains(output, "journal") {
		t.Errorf("Expected journal queue in status, got: %s", output)
	}
	if !strings.Contains(output, "cognitive") {
		t.Errorf("Expected cognitive queue in status, got: %s", output)
	}

	// Deleting hides the entry even though the server never confirmed.
	listOut, _ := run("journal", "list")
	id := extractID(listOut)
	if id == "" {
		t.Fatalf("No entry id in journal list: %s", listOut)
	}
	if output, err = run("journal", "delete", id); err != nil {
		t.Fatalf("Failed to delete entry: %v\n%s", err, output)
	}
	output, _ = run("journal", "list")
	if strings.Contains(output, "long run, slept badly") {
		t.Errorf("Deleted entry still listed: %s", output)
	}
}

func extractID(listOutput string) string {
	for _, line := range strings.Split(listOutput, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "id: "); ok {
			return rest
		}
	}
	return ""
}
