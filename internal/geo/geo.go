package geo

import "math"

const earthRadiusKm = 6371.0

// Locatable - все, у чего могут быть координаты.
type Locatable interface {
	Coordinates() (lat, lon float64, ok bool)
}

type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains проверяет попадание точки в прямоугольник.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm - расстояние по большому кругу (формула гаверсинусов).
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox - грубый предфильтр. Окончательную проверку радиуса делает DistanceKm.
func BoundingBox(lat, lon, radiusKm float64) Bounds {
	latDelta := radiusKm / 110.574
	lonDelta := radiusKm / (111.32 * math.Cos(toRad(lat)))
	if math.IsInf(lonDelta, 0) || math.IsNaN(lonDelta) || lonDelta > 180 {
		lonDelta = 180
	}
	lonDelta = math.Abs(lonDelta)

	return Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// lonSpan - полуширина круга по долготе в градусах. bounded=false, если круг накрывает полюс.
func lonSpan(lat, radiusKm float64) (span float64, bounded bool) {
	angular := radiusKm / earthRadiusKm
	if angular >= math.Pi/2 {
		return 0, false
	}
	ratio := math.Sin(angular) / math.Cos(toRad(lat))
	if ratio >= 1 || ratio < 0 || math.IsNaN(ratio) {
		return 0, false
	}
	return math.Asin(ratio) * 180 / math.Pi, true
}

// WithinRadius оставляет кандидатов в радиусе radiusKm от центра.
// Кандидаты без координат молча отбрасываются.
func WithinRadius[T Locatable](centerLat, centerLon, radiusKm float64, candidates []T) []T {
	box := BoundingBox(centerLat, centerLon, radiusKm)
	// Приближенная долгота BoundingBox у полюсов уже круга, поэтому здесь точная полуширина.
	span, bounded := lonSpan(centerLat, radiusKm)
	box.MinLon, box.MaxLon = centerLon-span, centerLon+span
	anyLon := !bounded || box.MinLon < -180 || box.MaxLon > 180

	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		lat, lon, ok := c.Coordinates()
		if !ok {
			continue
		}
		if anyLon {
			if lat < box.MinLat || lat > box.MaxLat {
				continue
			}
		} else if !box.Contains(lat, lon) {
			continue
		}
		if DistanceKm(centerLat, centerLon, lat, lon) <= radiusKm {
			out = append(out, c)
		}
	}
	return out
}
