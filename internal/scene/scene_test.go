package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-navgen/internal/waypoint"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

var _ waypoint.Physics = (*Scene)(nil)

const testSceneYAML = `
name: courtyard
agent:
  scramble: 0.6
grid:
  min: [0, 0, 0]
  resolution: 0.5
  width: 21
  depth: 21
seeds:
  - [1, 2, 1]
surfaces:
  - name: floor
    min: [0, 0]
    max: [10, 10]
    height: 0
  - name: ramp
    min: [6, 0]
    max: [10, 2]
    height: 0
    slope_x: 0.25
walls:
  - name: pillar
    min: [4, 0, 4]
    max: [5, 3, 5]
  - name: kerb
    min: [2, 0, 6]
    max: [3, 0.3, 9]
`

func mustParse(t *testing.T) *Scene {
	t.Helper()
	s, err := Parse([]byte(testSceneYAML))
	if err != nil {
		t.Fatalf("failed to parse scene: %v", err)
	}
	return s
}

func TestParse(t *testing.T) {
	s := mustParse(t)

	if s.Name != "courtyard" {
		t.Errorf("expected name courtyard, got %s", s.Name)
	}
	if len(s.Surfaces) != 2 || len(s.Walls) != 2 {
		t.Fatalf("expected 2 surfaces and 2 walls, got %d and %d", len(s.Surfaces), len(s.Walls))
	}
	// Agent fields not in the file keep their defaults.
	if s.Agent.Scramble != 0.6 {
		t.Errorf("expected scramble 0.6, got %f", s.Agent.Scramble)
	}
	if s.Agent.Height != DefaultAgent().Height {
		t.Errorf("expected default agent height, got %f", s.Agent.Height)
	}
	if got := s.SeedPoints(); len(got) != 1 || got[0] != (mathx.Vec3{X: 1, Y: 2, Z: 1}) {
		t.Errorf("unexpected seeds %v", got)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no resolution", "grid: {width: 4, depth: 4}\nsurfaces: [{max: [1, 1]}]\n"},
		{"tiny grid", "grid: {resolution: 1, width: 1, depth: 4}\nsurfaces: [{max: [1, 1]}]\n"},
		{"empty level", "grid: {resolution: 1, width: 4, depth: 4}\n"},
		{"inverted surface", "grid: {resolution: 1, width: 4, depth: 4}\nsurfaces: [{min: [2, 2], max: [1, 1]}]\n"},
		{"inverted wall", "grid: {resolution: 1, width: 4, depth: 4}\nwalls: [{min: [0, 3, 0], max: [1, 1, 1]}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidScene) {
				t.Errorf("expected ErrInvalidScene, got %v", err)
			}
		})
	}

	if _, err := Parse([]byte("grid: [not, a, map]")); err == nil {
		t.Error("expected decode error, got nil")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(testSceneYAML), 0644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load scene: %v", err)
	}
	if s.Grid.Width != 21 {
		t.Errorf("expected width 21, got %d", s.Grid.Width)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestFindDropPoint(t *testing.T) {
	s := mustParse(t)

	tests := []struct {
		name   string
		pos    mathx.Vec3
		want   float32
		wantOK bool
	}{
		{"floor", mathx.Vec3{X: 1, Y: 5, Z: 1}, 0, true},
		{"ramp above floor", mathx.Vec3{X: 8, Y: 5, Z: 1}, 0.5, true},
		{"under the ramp top", mathx.Vec3{X: 10, Y: 0.5, Z: 1}, 0, true},
		{"pillar top", mathx.Vec3{X: 4.5, Y: 10, Z: 4.5}, 3, true},
		{"beside pillar top", mathx.Vec3{X: 4.5, Y: 2, Z: 4.5}, 0, true},
		{"kerb top", mathx.Vec3{X: 2.5, Y: 0.3, Z: 7}, 0.3, true},
		{"off the level", mathx.Vec3{X: 20, Y: 5, Z: 20}, 0, false},
		{"below everything", mathx.Vec3{X: 1, Y: -1, Z: 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := s.FindDropPoint(tt.pos)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && h != tt.want {
				t.Errorf("expected height %f, got %f", tt.want, h)
			}
		})
	}
}

func TestIsUnblocked(t *testing.T) {
	s := mustParse(t)

	if !s.IsUnblocked(mathx.Vec3{X: 1, Z: 1}, 0) {
		t.Error("expected open floor to be unblocked")
	}
	if s.IsUnblocked(mathx.Vec3{X: 4.5, Z: 4.5}, 0) {
		t.Error("expected inside the pillar to be blocked")
	}
	// Standing right next to the pillar, the agent box overlaps it.
	if s.IsUnblocked(mathx.Vec3{X: 3.9, Z: 4.5}, 0) {
		t.Error("expected agent box against the pillar to be blocked")
	}
	if !s.IsUnblocked(mathx.Vec3{X: 4.5, Z: 4.5}, 3) {
		t.Error("expected pillar top to be unblocked")
	}
}

func TestAdjustMove(t *testing.T) {
	s := mustParse(t)

	// Open move arrives.
	got := s.AdjustMove(mathx.Vec3{X: 1, Z: 1}, mathx.Vec3{X: 2, Z: 1})
	if got.XZ().Distance(mathx.Vec2{X: 2, Z: 1}) > 1e-4 {
		t.Errorf("expected open move to arrive, got %v", got)
	}

	// The pillar stops the move short of it.
	got = s.AdjustMove(mathx.Vec3{X: 2, Z: 4.5}, mathx.Vec3{X: 4.5, Z: 4.5})
	if got.X > 4-s.Agent.Width/2+1e-4 {
		t.Errorf("expected move to stop before the pillar, got %v", got)
	}
	if got.X < 3 {
		t.Errorf("expected move to get close to the pillar, got %v", got)
	}

	// The kerb is low enough to step over.
	got = s.AdjustMove(mathx.Vec3{X: 1, Z: 7}, mathx.Vec3{X: 4, Z: 7})
	if got.XZ().Distance(mathx.Vec2{X: 4, Z: 7}) > 1e-4 {
		t.Errorf("expected to step over the kerb, got %v", got)
	}
}
