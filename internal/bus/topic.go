// Package bus implements the event bus client the orchestrator publishes
// to and subscribes from: an MQTT client (primary, paho-based) and an
// AMQP client (alternate transport), plus the wildcard topic matcher
// used for subscription dispatch.
package bus

import "strings"

// TopicMatches reports whether topic matches pattern, where pattern may
// use MQTT wildcards: "+" matches exactly one level, "#" matches every
// remaining level, MQTT-style.
func TopicMatches(pattern, topic string) bool {
	patParts := strings.Split(pattern, "/")
	topParts := strings.Split(topic, "/")

	pi := 0
	for ti := 0; ti < len(topParts); ti++ {
		if pi >= len(patParts) {
			return false
		}
		switch patParts[pi] {
		case "#":
			return true
		case "+":
			pi++
			continue
		default:
			if patParts[pi] != topParts[ti] {
				return false
			}
		}
		pi++
	}

	return pi == len(patParts)
}
