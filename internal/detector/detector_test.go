package detector

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/proxiwatch/internal/logging"
)

func TestReadLabels(t *testing.T) {
	t.Run("one label per line", func(t *testing.T) {
		labels, err := ReadLabels(strings.NewReader("person\nbicycle\ncar\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"person", "bicycle", "car"}
		if len(labels) != len(want) {
			t.Fatalf("expected %d labels, got %d", len(want), len(labels))
		}
		for i := range want {
			if labels[i] != want[i] {
				t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
			}
		}
	})

	t.Run("trims whitespace and CRLF", func(t *testing.T) {
		labels, err := ReadLabels(strings.NewReader("person \r\n traffic light\r\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if labels[0] != "person" || labels[1] != "traffic light" {
			t.Errorf("unexpected labels %q", labels)
		}
	})

	t.Run("trailing blank lines dropped", func(t *testing.T) {
		labels, _ := ReadLabels(strings.NewReader("person\n\n\n"))
		if len(labels) != 1 {
			t.Errorf("expected 1 label, got %d", len(labels))
		}
	})
}

func TestLoadLabels_Missing(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "nope.names"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("models")

	if cfg.WeightsPath != filepath.Join("models", "yolov3.weights") {
		t.Errorf("WeightsPath = %s", cfg.WeightsPath)
	}
	if cfg.ConfigPath != filepath.Join("models", "yolov3.cfg") {
		t.Errorf("ConfigPath = %s", cfg.ConfigPath)
	}
	if cfg.LabelsPath != filepath.Join("models", "coco.names") {
		t.Errorf("LabelsPath = %s", cfg.LabelsPath)
	}
	if cfg.InputSize != 416 {
		t.Errorf("InputSize = %d, want 416", cfg.InputSize)
	}
}

func TestCheckArtifacts(t *testing.T) {
	logger := logging.NewNop()

	t.Run("all missing reported individually", func(t *testing.T) {
		dir := t.TempDir()

		err := CheckArtifacts(dir, logger)
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, ErrMissingArtifact) {
			t.Errorf("expected ErrMissingArtifact, got %v", err)
		}

		missing := MissingArtifacts(err)
		if len(missing) != 3 {
			t.Fatalf("expected 3 missing artifacts, got %d", len(missing))
		}
		for i, m := range missing {
			if filepath.Base(m.Path) != RequiredArtifacts[i].Name {
				t.Errorf("missing[%d] = %s, want %s", i, m.Path, RequiredArtifacts[i].Name)
			}
			if !strings.Contains(m.Error(), "wget") {
				t.Errorf("expected remediation hint in %q", m.Error())
			}
		}
	})

	t.Run("only the absent file is reported", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{WeightsFile, NetConfigFile} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}

		missing := MissingArtifacts(CheckArtifacts(dir, logger))
		if len(missing) != 1 {
			t.Fatalf("expected 1 missing artifact, got %d", len(missing))
		}
		if filepath.Base(missing[0].Path) != LabelsFile {
			t.Errorf("expected %s missing, got %s", LabelsFile, missing[0].Path)
		}
	})

	t.Run("directory does not count as file", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, WeightsFile), []byte("x"), 0644)
		os.WriteFile(filepath.Join(dir, NetConfigFile), []byte("x"), 0644)
		os.Mkdir(filepath.Join(dir, LabelsFile), 0755)

		if err := CheckArtifacts(dir, logger); err == nil {
			t.Error("expected error when labels path is a directory")
		}
	})

	t.Run("all present", func(t *testing.T) {
		dir := t.TempDir()
		for _, a := range RequiredArtifacts {
			os.WriteFile(filepath.Join(dir, a.Name), []byte("x"), 0644)
		}
		if err := CheckArtifacts(dir, logger); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no candidates by default", func(t *testing.T) {
		mock := NewMockDetector(TestLabels())

		candidates, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if candidates != nil {
			t.Errorf("expected nil candidates, got %v", candidates)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured candidates", func(t *testing.T) {
		mock := NewMockDetector(TestLabels())
		mock.SetCandidates([]Candidate{
			ClassCandidate(0, 5, 0.9, 0.5, 0.5, 0.2, 0.6),
			ClassCandidate(2, 5, 0.8, 0.2, 0.2, 0.1, 0.1),
		})

		candidates, _ := mock.Detect(nil)
		if len(candidates) != 2 {
			t.Errorf("expected 2 candidates, got %d", len(candidates))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector(nil)
		expectedErr := errors.New("inference failed")
		mock.SetError(expectedErr)

		candidates, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if candidates != nil {
			t.Errorf("expected nil candidates when error is set, got %v", candidates)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector(nil)
		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected Closed() after Close")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*YOLODetector)(nil)
	})
}

func TestClassCandidate(t *testing.T) {
	c := ClassCandidate(3, 5, 0.7, 0.1, 0.2, 0.3, 0.4)
	if len(c.Scores) != 5 {
		t.Fatalf("expected 5 scores, got %d", len(c.Scores))
	}
	if c.Scores[3] != 0.7 {
		t.Errorf("Scores[3] = %f, want 0.7", c.Scores[3])
	}
	if c.CenterX != 0.1 || c.CenterY != 0.2 || c.Width != 0.3 || c.Height != 0.4 {
		t.Errorf("unexpected box %+v", c)
	}

	out := ClassCandidate(9, 5, 0.7, 0, 0, 0, 0)
	for i, s := range out.Scores {
		if s != 0 {
			t.Errorf("Scores[%d] = %f, want 0 for out of range class", i, s)
		}
	}
}

func TestNewYOLO_MissingLabels(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	if _, err := NewYOLO(cfg); err == nil {
		t.Error("expected error when labels file is missing")
	}
}
