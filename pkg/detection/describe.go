package detection

import (
	"fmt"
	"strings"
)

// CountByClass counts detections per class label.
func CountByClass(dets []Detection) map[string]int {
	counts := make(map[string]int, len(dets))
	for _, d := range dets {
		counts[d.Class]++
	}
	return counts
}

// Classes returns the class labels in detector order.
func Classes(dets []Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Class
	}
	return out
}

// Describe summarizes a detection list in one sentence, people first, then
// other classes in the order they were first seen.
//
//	"I can see 2 people, 1 chair and 3 cups."
func Describe(dets []Detection) string {
	if len(dets) == 0 {
		return "I don't see anything specific in the scene."
	}

	counts := CountByClass(dets)

	var parts []string
	if people := counts["person"]; people == 1 {
		parts = append(parts, "1 person")
	} else if people > 1 {
		parts = append(parts, fmt.Sprintf("%d people", people))
	}

	seen := make(map[string]bool)
	for _, d := range dets {
		if IsPerson(d.Class) || seen[d.Class] {
			continue
		}
		seen[d.Class] = true
		if n := counts[d.Class]; n == 1 {
			parts = append(parts, "1 "+d.Class)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", n, d.Class))
		}
	}

	if len(parts) == 1 {
		return fmt.Sprintf("I can see %s.", parts[0])
	}
	return fmt.Sprintf("I can see %s and %s.", strings.Join(parts[:len(parts)-1], ", "), parts[len(parts)-1])
}
