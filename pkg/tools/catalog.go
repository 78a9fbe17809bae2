package tools

func ptr(f float64) *float64 { return &f }

// DroneTools returns the catalog of drone commands. It must stay in
// sync with the handler set the actuation service accepts.
func DroneTools() []Definition {
	return []Definition{
		{
			Name:        "takeoff",
			Description: "Take the drone off to a target altitude",
			Params: map[string]Param{
				"altitude": {
					Type:        "number",
					Description: "Target altitude in meters, range 1-100",
					Required:    true,
					Min:         ptr(1),
					Max:         ptr(100),
				},
			},
		},
		{
			Name:        "land",
			Description: "Land the drone at its current position",
			Params:      map[string]Param{},
		},
		{
			Name:        "move_to_position",
			Description: "Move the drone to a 3D coordinate relative to its start position",
			Params: map[string]Param{
				"x": {
					Type:        "number",
					Description: "X coordinate in meters, relative to start",
					Required:    true,
				},
				"y": {
					Type:        "number",
					Description: "Y coordinate in meters, relative to start",
					Required:    true,
				},
				"z": {
					Type:        "number",
					Description: "Z coordinate in meters, negative is up, relative to start",
					Required:    true,
				},
				"velocity": {
					Type:        "number",
					Description: "Travel speed in meters per second, range 1-20",
					Default:     5,
					Min:         ptr(1),
					Max:         ptr(20),
				},
			},
		},
		{
			Name:        "hover",
			Description: "Hold the drone at its current position",
			Params:      map[string]Param{},
		},
		{
			Name:        "get_drone_state",
			Description: "Report the drone's current position, velocity, and flight state",
			Params:      map[string]Param{},
		},
		{
			Name:        "emergency_stop",
			Description: "Immediately stop all drone motion",
			Params:      map[string]Param{},
		},
	}
}
