package classification

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewModelSessionMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "models", DefaultModelFile)

	_, err := NewModelSession(path, FoodClasses.Len(), SessionOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if KindOf(err) != KindModelLoad {
		t.Errorf("kind = %v, want %v", KindOf(err), KindModelLoad)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the model path", err)
	}
}
