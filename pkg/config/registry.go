package config

// Persistent state keys (Registry)
const (
	KeyUnits   = "units"
	KeyFlyZoom = "fly_zoom"
)
