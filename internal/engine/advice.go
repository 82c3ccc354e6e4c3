package engine

import (
	"slices"

	"weatheralert/internal/types"
)

const maxRecommendations = 6

// The tables below are built once at package initialization and only read
// afterwards. Recommendations copies lines into a fresh slice, so callers
// never hold a reference into them.

// baseRecommendations apply to every persona for a weather alert type.
var baseRecommendations = map[types.AlertType][]string{
	types.AlertHeatwave: {
		"Avoid outdoor activities during peak hours (12 PM - 4 PM)",
		"Stay hydrated and drink plenty of water",
		"Use sunscreen and wear protective clothing",
		"Check on elderly and vulnerable individuals",
	},
	types.AlertHeavyRain: {
		"Carry an umbrella or raincoat",
		"Allow extra time for commute",
		"Avoid flood-prone areas",
		"Check weather updates regularly",
	},
	types.AlertStorm: {
		"Stay indoors if possible",
		"Secure loose objects outdoors",
		"Avoid areas with trees and power lines",
		"Postpone outdoor activities",
	},
	types.AlertColdWave: {
		"Wear warm clothing in layers",
		"Protect exposed skin",
		"Check heating systems",
		"Be aware of frost and ice",
	},
	types.AlertHighHumidity: {
		"Stay in air-conditioned spaces",
		"Drink plenty of fluids",
		"Limit strenuous outdoor activities",
		"Watch for signs of heat exhaustion",
	},
}

// personaRecommendations are listed ahead of the base lines.
var personaRecommendations = map[types.UserType]map[types.AlertType][]string{
	types.UserTypeStudent: {
		types.AlertHeatwave:     {"Plan indoor study sessions", "Carry water bottle to school"},
		types.AlertHeavyRain:    {"Allow extra time for commute", "Keep books and electronics protected"},
		types.AlertStorm:        {"Stay in school building if weather worsens", "Inform parents about weather"},
		types.AlertColdWave:     {"Dress in layers for the walk to class", "Keep a spare warm layer in your bag"},
		types.AlertHighHumidity: {"Stay in air-conditioned classrooms", "Carry extra water to school"},
	},
	types.UserTypeFarmer: {
		types.AlertHeatwave:     {"Work during early morning or late evening", "Ensure worker hydration"},
		types.AlertHeavyRain:    {"Protect crops and equipment", "Check drainage systems", "Delay harvesting"},
		types.AlertStorm:        {"Secure farm equipment", "Protect livestock", "Check barn structures"},
		types.AlertColdWave:     {"Protect sensitive crops", "Ensure livestock shelter", "Check irrigation systems"},
		types.AlertHighHumidity: {"Monitor crop health for fungal diseases", "Ensure proper ventilation in storage"},
	},
	types.UserTypeTraveller: {
		types.AlertHeatwave:     {"Plan indoor activities", "Carry sufficient water", "Avoid peak sun hours"},
		types.AlertHeavyRain:    {"Check road conditions", "Avoid flood-prone routes", "Have alternate plans"},
		types.AlertStorm:        {"Postpone travel if possible", "Seek shelter", "Avoid coastal areas"},
		types.AlertColdWave:     {"Check for road ice before driving", "Pack warm clothing and blankets"},
		types.AlertHighHumidity: {"Plan indoor sightseeing", "Stay hydrated during outdoor activities"},
	},
	types.UserTypeDeliveryWorker: {
		types.AlertHeatwave:     {"Schedule deliveries for cooler hours", "Keep vehicle AC functional"},
		types.AlertHeavyRain:    {"Use waterproof packaging", "Plan safer routes"},
		types.AlertStorm:        {"Delay deliveries if unsafe", "Stay in touch with dispatch"},
		types.AlertColdWave:     {"Watch for icy patches on routes", "Wear insulated gloves while riding"},
		types.AlertHighHumidity: {"Take frequent breaks in AC", "Keep extra water in vehicle"},
	},
	types.UserTypeGeneral: {
		types.AlertHeatwave:     {"Stay indoors during peak hours", "Drink plenty of water"},
		types.AlertHeavyRain:    {"Carry umbrella", "Avoid unnecessary travel"},
		types.AlertStorm:        {"Stay indoors", "Secure outdoor items"},
		types.AlertColdWave:     {"Wear warm clothing", "Keep heating systems ready"},
		types.AlertHighHumidity: {"Use air conditioning if available", "Stay hydrated"},
	},
}

// Recommendations returns 3 to 6 lines for a weather alert type, persona lines
// first. The result is always a new, non-nil slice.
func Recommendations(alertType types.AlertType, userType types.UserType) []string {
	out := make([]string, 0, maxRecommendations)
	seen := make(map[string]struct{}, maxRecommendations)
	add := func(lines []string) {
		for _, l := range lines {
			if len(out) == maxRecommendations {
				return
			}
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	add(personaRecommendations[userType][alertType])
	add(baseRecommendations[alertType])
	return out
}

// earthquakeGuidance is keyed by persona, then severity.
var earthquakeGuidance = map[types.UserType]map[types.Severity]string{
	types.UserTypeStudent: {
		types.SeverityCritical: "TAKE COVER NOW! Drop, Cover, and Hold On. Stay away from windows. Follow your school's earthquake drill procedures.",
		types.SeverityWarning:  "Stay alert. If you feel shaking, drop under a desk and hold on. Inform teachers and stay calm.",
		types.SeverityInfo:     "Be aware of this seismic activity. Review earthquake safety procedures with your school.",
	},
	types.UserTypeFarmer: {
		types.SeverityCritical: "Secure livestock immediately. Move away from structures and equipment. Check for gas leaks and structural damage after shaking stops.",
		types.SeverityWarning:  "Monitor your animals for unusual behavior. Secure heavy equipment. Be prepared for aftershocks.",
		types.SeverityInfo:     "Check farm structures for any damage. Ensure water sources are not contaminated.",
	},
	types.UserTypeTraveller: {
		types.SeverityCritical: "Seek shelter immediately in a sturdy building. Stay away from coastal areas if near the ocean (tsunami risk). Do not use elevators.",
		types.SeverityWarning:  "Avoid traveling to the affected area. Check with local authorities. Have an emergency plan ready.",
		types.SeverityInfo:     "Monitor local news for updates. Be aware of potential travel disruptions in the region.",
	},
	types.UserTypeDeliveryWorker: {
		types.SeverityCritical: "Stop your vehicle safely away from buildings, bridges, and power lines. Stay inside until shaking stops.",
		types.SeverityWarning:  "Avoid routes near the affected area. Check road conditions before proceeding. Stay in communication with dispatch.",
		types.SeverityInfo:     "Be aware of potential road damage or closures in the affected region.",
	},
	types.UserTypeGeneral: {
		types.SeverityCritical: "DROP, COVER, and HOLD ON! Get under sturdy furniture. Stay away from windows and outside walls. Do not run outside.",
		types.SeverityWarning:  "Be prepared for aftershocks. Have emergency supplies ready. Check on neighbors.",
		types.SeverityInfo:     "Stay informed through official channels. Review your emergency preparedness plan.",
	},
}

var tsunamiActions = map[types.Severity]string{
	types.SeverityCritical: "EVACUATE IMMEDIATELY to higher ground (at least 30m above sea level or 3km inland). Do not wait for official evacuation orders.",
	types.SeverityWarning:  "Move to higher ground as a precaution. Stay away from beaches and coastal areas. Monitor official channels.",
	types.SeverityInfo:     "Stay informed through official channels. Be prepared to evacuate if warning is upgraded.",
}

var tsunamiPersonaGuidance = map[types.UserType]string{
	types.UserTypeStudent:        "If at school, follow your school's evacuation drill. Move to upper floors or inland immediately.",
	types.UserTypeFarmer:         "Move livestock to higher ground and go with them. Do not attempt to save equipment.",
	types.UserTypeTraveller:      "Leave coastal hotels immediately. Head inland or to high ground. Do not use elevators.",
	types.UserTypeDeliveryWorker: "Abandon deliveries. Drive inland immediately. Alert dispatch of your location.",
	types.UserTypeGeneral:        "Take tsunami warnings seriously. Move quickly but calmly to safety.",
}

// Guidance returns persona-specific advice for a disaster alert.
func Guidance(alertType types.AlertType, severity types.Severity, userType types.UserType) string {
	switch alertType {
	case types.AlertEarthquake:
		return earthquakeGuidance[userType][severity]
	case types.AlertTsunami:
		action := tsunamiActions[severity]
		persona := tsunamiPersonaGuidance[userType]
		if persona == "" {
			return action
		}
		return action + " " + persona
	}
	return ""
}

var disasterChecklists = map[types.AlertType][]string{
	types.AlertEarthquake: {
		"Expect aftershocks in the coming hours",
		"Check for gas leaks and structural damage",
		"Keep emergency supplies within reach",
	},
	types.AlertTsunami: {
		"Move away from beaches and river mouths",
		"Stay on high ground until officials give the all-clear",
		"Follow official evacuation routes",
	},
}

// disasterRecommendations gives disaster alerts a short checklist so the
// recommendations field is populated for every alert type. The result is a
// copy the caller may keep.
func disasterRecommendations(alertType types.AlertType) []string {
	lines, ok := disasterChecklists[alertType]
	if !ok {
		return []string{}
	}
	return slices.Clone(lines)
}
