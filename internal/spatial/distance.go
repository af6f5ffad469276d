package spatial

import "github.com/golang/geo/s2"

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers

	// GridCellDegrees is the edge length of a clustering grid cell,
	// roughly 1.1 km at the equator
	GridCellDegrees = 0.01
)

// HaversineDistance calculates the great-circle distance between two points
// in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// GridKey assigns a coordinate to its clustering grid cell by truncating
// lat/0.01 and lon/0.01 toward zero
func GridKey(lat, lon float64) (int, int) {
	return int(lat / GridCellDegrees), int(lon / GridCellDegrees)
}
