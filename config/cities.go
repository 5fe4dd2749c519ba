package config

import "strings"

// City represents a commute destination
type City struct {
	Name   string    `json:"name"`
	Center []float64 `json:"center"` // lat, lng
}

// MajorCities is the fixed list of employment centers used for commute estimates
var MajorCities = []City{
	{
		Name:   "Tel Aviv",
		Center: []float64{32.0853, 34.7818},
	},
	{
		Name:   "Jerusalem",
		Center: []float64{31.7683, 35.2137},
	},
	{
		Name:   "Haifa",
		Center: []float64{32.7940, 34.9896},
	},
	{
		Name:   "Be'er Sheva",
		Center: []float64{31.2520, 34.7915},
	},
	{
		Name:   "Netanya",
		Center: []float64{32.3215, 34.8532},
	},
}

// GetCityNames returns the names of the given cities in order
func GetCityNames(cities []City) []string {
	names := make([]string, len(cities))
	for i, city := range cities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city by name, ignoring case and surrounding spaces
func GetCityByName(cities []City, name string) *City {
	key := NormalizeCity(name)
	for _, city := range cities {
		if NormalizeCity(city.Name) == key {
			c := city
			return &c
		}
	}
	return nil
}

// NormalizeCity turns a city name into a comparison key: lower case, single
// hyphens instead of whitespace, apostrophes removed.
func NormalizeCity(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "'", "")
	return strings.Join(strings.Fields(name), "-")
}
