package triage

import "strings"

// severeSymptomKeywords is the closed set consulted both when detections is
// empty and as the confirmatory add-on once a dominant detection is chosen.
var severeSymptomKeywords = []string{
	"severe pain", "intense pain", "unbearable", "excruciating",
	"deformity", "bone visible", "bleeding", "numbness", "tingling",
	"can't move", "unable to bear weight",
}

// hasSevereSymptom reports whether symptoms contains any severe-symptom
// keyword, case-insensitively.
func hasSevereSymptom(symptoms string) bool {
	lower := strings.ToLower(symptoms)
	for _, kw := range severeSymptomKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// severityBucket is one substring-set -> weight row, evaluated in order.
type severityBucket struct {
	substrings []string
	weight     float64
}

var severityBuckets = []severityBucket{
	{[]string{"compound", "open", "severe", "displaced", "comminuted", "avulsion"}, 0.30},
	{[]string{"fracture detected", "break", "crack", "confirmed fracture"}, 0.20},
	{[]string{"likely fracture", "probable fracture", "suspected fracture"}, 0.10},
	{[]string{"possible fracture", "minor", "hairline", "stress"}, 0.05},
	{[]string{"no fractures", "no fracture", "normal", "clear", "negative"}, 0.00},
}

// severity maps a detection label to a value in [0.0, 0.3]. Labels that match none of the known buckets default to 0.10.
func severity(label string) float64 {
	lower := strings.ToLower(label)
	for _, bucket := range severityBuckets {
		for _, sub := range bucket.substrings {
			if strings.Contains(lower, sub) {
				return bucket.weight
			}
		}
	}
	return 0.10
}
