package mindmap

import (
	"math"

	"github.com/phrazzld/mindmap-api/internal/domain"
)

// Canvas geometry.
const (
	RootX = 400.0
	RootY = 200.0

	branchRadiusStep  = 150.0
	childArcDegrees   = 60.0
	expansionRadius   = 120.0
	grandchildRadius  = 80.0
	fullCircleDegrees = 360.0
)

// Colors.
const (
	rootColor       = "#ff6b6b"
	rootBorderColor = "#ff5252"
	textColor       = "white"
)

var levelColors = []string{"#4ecdc4", "#45b7d1", "#96ceb4", "#feca57", "#ff9ff3"}

// levelColor returns the palette entry for idx, clamped to the last color.
func levelColor(idx int) string {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levelColors) {
		idx = len(levelColors) - 1
	}
	return levelColors[idx]
}

// angleStep divides span degrees evenly among n siblings.
func angleStep(span float64, n int) float64 {
	if n < 1 {
		n = 1
	}
	return span / float64(n)
}

// polar returns the point at radius and angle (degrees) from center.
func polar(center domain.Position, radius, degrees float64) domain.Position {
	rad := degrees * math.Pi / 180
	return domain.Position{
		X: center.X + radius*math.Cos(rad),
		Y: center.Y + radius*math.Sin(rad),
	}
}

func rootStyle() *domain.NodeStyle {
	return &domain.NodeStyle{
		Background:   rootColor,
		Color:        textColor,
		Border:       "2px solid " + rootBorderColor,
		BorderRadius: "10px",
		FontSize:     "16px",
		FontWeight:   "bold",
	}
}

func nodeStyle(color, fontSize string) *domain.NodeStyle {
	return &domain.NodeStyle{
		Background:   color,
		Color:        textColor,
		Border:       "2px solid " + color,
		BorderRadius: "8px",
		FontSize:     fontSize,
	}
}

func edge(parentID, childID, color string) domain.Edge {
	return domain.Edge{
		ID:       domain.EdgeID(parentID, childID),
		Source:   parentID,
		Target:   childID,
		Type:     domain.EdgeTypeSmoothStep,
		Animated: true,
		Style:    &domain.EdgeStyle{Stroke: color, StrokeWidth: 2},
	}
}
