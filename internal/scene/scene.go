// Package scene loads small YAML-described levels and answers the
// collision queries used by the flood sampler and the waypoint generator.
//
// A scene is a set of walkable surfaces (flat or sloped rectangles) and
// solid walls (axis-aligned boxes). The tops of walls are walkable too.
package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// ErrInvalidScene is returned for scenes that fail validation.
var ErrInvalidScene = errors.New("invalid scene")

// Agent is the clearance box and climbing ability of the walking agent.
type Agent struct {
	Width    float32 `yaml:"width"`
	Height   float32 `yaml:"height"`
	Depth    float32 `yaml:"depth"`
	Scramble float32 `yaml:"scramble"`
}

// Surface is a walkable rectangle. Its height at (x, z) is
// Height + SlopeX*(x-Min.x) + SlopeZ*(z-Min.z).
type Surface struct {
	Name   string     `yaml:"name"`
	Min    [2]float32 `yaml:"min"` // x, z
	Max    [2]float32 `yaml:"max"`
	Height float32    `yaml:"height"`
	SlopeX float32    `yaml:"slope_x"`
	SlopeZ float32    `yaml:"slope_z"`
}

// HeightAt returns the surface height at a world XZ position.
func (s *Surface) HeightAt(x, z float32) (float32, bool) {
	if x < s.Min[0] || x > s.Max[0] || z < s.Min[1] || z > s.Max[1] {
		return 0, false
	}
	return s.Height + s.SlopeX*(x-s.Min[0]) + s.SlopeZ*(z-s.Min[1]), true
}

// Wall is a solid box.
type Wall struct {
	Name string     `yaml:"name"`
	Min  [3]float32 `yaml:"min"`
	Max  [3]float32 `yaml:"max"`
}

// Grid describes the sample lattice a scene is flooded into.
type Grid struct {
	Min        [3]float32 `yaml:"min"`
	Resolution float32    `yaml:"resolution"`
	Width      int        `yaml:"width"`
	Depth      int        `yaml:"depth"`
}

// Scene is a complete level description.
type Scene struct {
	Name     string       `yaml:"name"`
	Agent    Agent        `yaml:"agent"`
	Grid     Grid         `yaml:"grid"`
	Seeds    [][3]float32 `yaml:"seeds"`
	Surfaces []Surface    `yaml:"surfaces"`
	Walls    []Wall       `yaml:"walls"`
}

// DefaultAgent returns a human-sized agent.
func DefaultAgent() Agent {
	return Agent{Width: 0.5, Height: 1.8, Depth: 0.5, Scramble: 0.5}
}

// Parse decodes and validates a scene. Missing agent fields take the
// DefaultAgent values.
func Parse(data []byte) (*Scene, error) {
	s := &Scene{Agent: DefaultAgent()}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading scene %s: %w", path, err)
	}
	return s, nil
}

// Validate checks that the scene can be flooded.
func (s *Scene) Validate() error {
	if s.Grid.Resolution <= 0 {
		return fmt.Errorf("%w: grid resolution %v", ErrInvalidScene, s.Grid.Resolution)
	}
	if s.Grid.Width < 2 || s.Grid.Depth < 2 {
		return fmt.Errorf("%w: grid %dx%d is too small", ErrInvalidScene, s.Grid.Width, s.Grid.Depth)
	}
	if s.Agent.Height <= 0 || s.Agent.Scramble < 0 {
		return fmt.Errorf("%w: agent height %v scramble %v", ErrInvalidScene, s.Agent.Height, s.Agent.Scramble)
	}
	if len(s.Surfaces) == 0 && len(s.Walls) == 0 {
		return fmt.Errorf("%w: no surfaces or walls", ErrInvalidScene)
	}
	for i, sf := range s.Surfaces {
		if sf.Min[0] > sf.Max[0] || sf.Min[1] > sf.Max[1] {
			return fmt.Errorf("%w: surface %d (%s) has inverted bounds", ErrInvalidScene, i, sf.Name)
		}
	}
	for i, w := range s.Walls {
		if w.Min[0] > w.Max[0] || w.Min[1] > w.Max[1] || w.Min[2] > w.Max[2] {
			return fmt.Errorf("%w: wall %d (%s) has inverted bounds", ErrInvalidScene, i, w.Name)
		}
	}
	return nil
}

// GridMin returns the grid origin as a vector.
func (s *Scene) GridMin() mathx.Vec3 {
	return vec3(s.Grid.Min)
}

// SeedPoints returns the flood seeds as vectors.
func (s *Scene) SeedPoints() []mathx.Vec3 {
	out := make([]mathx.Vec3, len(s.Seeds))
	for i, p := range s.Seeds {
		out[i] = vec3(p)
	}
	return out
}

func vec3(a [3]float32) mathx.Vec3 {
	return mathx.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
