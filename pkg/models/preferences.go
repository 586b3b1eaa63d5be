package models

// Terrain describes the landscape a rider wants to ride through.
type Terrain string

const (
	TerrainMixed     Terrain = "mixed"
	TerrainMountains Terrain = "mountains"
	TerrainCoast     Terrain = "coast"
	TerrainHills     Terrain = "hills"
	TerrainFlat      Terrain = "flat"
)

// RoadStyle describes the kind of roads to prefer.
type RoadStyle string

const (
	RoadStyleTwisty   RoadStyle = "twisty"
	RoadStyleScenic   RoadStyle = "scenic"
	RoadStyleBalanced RoadStyle = "balanced"
	RoadStyleFast     RoadStyle = "fast"
	RoadStyleGravel   RoadStyle = "gravel"
)

// Preferences is an already-resolved preference set. Override-versus-default resolution happens upstream.
type Preferences struct {
	Terrain             Terrain   `json:"terrain"               validate:"required,oneof=mixed mountains coast hills flat"`
	RoadStyle           RoadStyle `json:"road_style"            validate:"required,oneof=twisty scenic balanced fast gravel"`
	TargetDurationHours float64   `json:"target_duration_hours" validate:"gte=0,lte=240"`
	TargetDistanceKM    float64   `json:"target_distance_km"    validate:"gte=0,lte=10000"`
}
