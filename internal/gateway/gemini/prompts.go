package gemini

import "fmt"

const chatSystemInstruction = "You are ATLAS AI. You help users find real-time APSRTC and Indian transit data using official search results."

func routesPrompt(pickup, drop string) string {
	return fmt.Sprintf(`Search for live bus routes between %q and %q in India, prioritising APSRTC (Andhra Pradesh State Road Transport Corporation) services.

Requirements:
1. Use real bus numbers and service names such as "65H", "Palle Velugu", "Express" or "Indra".
2. Check official APSRTC schedules through live search.
3. Give realistic arrival times for current traffic.
4. If APSRTC does not serve the route, use the closest state transport operator (TSRTC, BMTC and similar).

Return exactly 5 options as JSON.`, pickup, drop)
}

func nearbyPrompt(query string) string {
	return fmt.Sprintf("Find %s near this location. Focus on APSRTC bus stands and major railway stations.", query)
}

// routesSchema mirrors gateway.BusRoute without the fields Atlas stamps itself.
func routesSchema() *schema {
	str := func() *schema { return &schema{Type: "STRING"} }

	stop := &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"name":          str(),
			"time":          str(),
			"fareFromStart": str(),
		},
		Required: []string{"name", "time", "fareFromStart"},
	}

	route := &schema{
		Type: "OBJECT",
		Properties: map[string]*schema{
			"id":             str(),
			"busNumber":      str(),
			"arrivalTime":    str(),
			"passingAreas":   {Type: "ARRAY", Items: str()},
			"endDestination": str(),
			"duration":       str(),
			"type":           str(),
			"isLate":         {Type: "BOOLEAN"},
			"baseFare":       str(),
			"provider":       {Type: "STRING", Description: "Transport authority name, e.g., APSRTC"},
			"schedule":       {Type: "ARRAY", Items: stop},
		},
		Required: []string{
			"id", "busNumber", "arrivalTime", "passingAreas", "endDestination",
			"duration", "type", "isLate", "baseFare", "provider",
		},
	}

	return &schema{Type: "ARRAY", Items: route}
}
