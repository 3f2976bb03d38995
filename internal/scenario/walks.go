package scenario

// BuiltIn returns predefined walks keyed by name.
func BuiltIn() map[string]Walk {
	return map[string]Walk{
		"evening-walk": {
			Name:        "Evening Walk",
			Description: "A loop through the inner districts, back to the starting corner.",
			Loop:        true,
			Legs: []Leg{
				{Lat: 48.2082, Lon: 16.3738, PaceKmh: 5},
				{Lat: 48.2105, Lon: 16.3772, PaceKmh: 5},
				{Lat: 48.2124, Lon: 16.3741, PaceKmh: 4.5, PauseSeconds: 20},
				{Lat: 48.2110, Lon: 16.3699, PaceKmh: 5},
				{Lat: 48.2082, Lon: 16.3738, PaceKmh: 5.5},
			},
		},
		"commute": {
			Name:        "Commute",
			Description: "Home to the office with a short stop at the tram platform.",
			Legs: []Leg{
				{Lat: 48.1951, Lon: 16.3483, PaceKmh: 5},
				{Lat: 48.1987, Lon: 16.3530, PaceKmh: 5, PauseSeconds: 90},
				{Lat: 48.2066, Lon: 16.3654, PaceKmh: 24},
				{Lat: 48.2089, Lon: 16.3702, PaceKmh: 4.5},
			},
		},
		"campus-loop": {
			Name:        "Campus Loop",
			Description: "A slow circuit around the university campus grounds.",
			Loop:        true,
			Legs: []Leg{
				{Lat: 48.2132, Lon: 16.3602, PaceKmh: 4},
				{Lat: 48.2151, Lon: 16.3625, PaceKmh: 4},
				{Lat: 48.2163, Lon: 16.3586, PaceKmh: 4, PauseSeconds: 30},
				{Lat: 48.2140, Lon: 16.3561, PaceKmh: 4},
				{Lat: 48.2132, Lon: 16.3602, PaceKmh: 4},
			},
		},
	}
}
