package cmd

import "strings"

// nats does not allow certain characters to be used as a subject (topic) name
// validateSubject will return a validated & sanitized subject string
func validateSubject(topic string) string {
	return strings.Replace(topic, " ", "_", -1)
}

// renderTopics returns the request, reply and state subjects of a render
// worker service.
func renderTopics(serviceName string) (request, reply, state string) {
	base := validateSubject(serviceName)
	return base + ".request", base + ".reply", base + ".state"
}
