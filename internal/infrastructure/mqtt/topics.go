package mqtt

import "fmt"

// Topic prefixes for the Meridian MQTT namespace.
//
// Scheme:
//
//	meridian/events/{trigger_type}              CRM domain events (inbound)
//	meridian/outbound/{channel}/{contact_id}    messages to channel bridges
//	meridian/core/automation/{id}/fired         engine notifications
//	meridian/system/status                      online/offline status
const (
	TopicPrefix       = "meridian"
	TopicPrefixCore   = "meridian/core"
	TopicPrefixSystem = "meridian/system"
)

// Topics provides builders for Meridian MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Event returns the topic a CRM event of the given trigger type is published on.
//
// Example: meridian/events/contact-created
func (Topics) Event(triggerType string) string {
	return fmt.Sprintf("%s/events/%s", TopicPrefix, triggerType)
}

// AllEvents returns a pattern matching every CRM event topic.
//
// Pattern: meridian/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/events/+", TopicPrefix)
}

// Outbound returns the topic an outbound message for a contact is published on.
//
// Example: meridian/outbound/whatsapp/c-1042
func (Topics) Outbound(channel, contactID string) string {
	return fmt.Sprintf("%s/outbound/%s/%s", TopicPrefix, channel, contactID)
}

// AutomationFired returns the topic for engine execution notifications.
//
// Example: meridian/core/automation/a-17/fired
func (Topics) AutomationFired(automationID string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefixCore, automationID)
}

// SystemStatus returns the system status topic.
//
// Example: meridian/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
