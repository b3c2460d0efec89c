// Package bus provides the durable publish/subscribe client that decouples
// membership mutations from real-time delivery.
package bus

// Topic names a Kafka topic the service publishes to or consumes from.
type Topic string

const (
	// TopicNetworkUpdates carries network lifecycle and room-scoped events.
	TopicNetworkUpdates Topic = "network-updates"
	// TopicMemberUpdates carries membership lifecycle events.
	TopicMemberUpdates Topic = "member-updates"
	// TopicGoalUpdates carries network goal events.
	TopicGoalUpdates Topic = "goal-updates"
	// TopicJoinRequests carries join request events for admin rooms.
	TopicJoinRequests Topic = "join-requests"
	// TopicNotifications carries direct user notifications.
	TopicNotifications Topic = "notifications"
	// TopicUserActivity carries generic per-user activity events.
	TopicUserActivity Topic = "user-activity"
)

// AllTopics lists every topic the event router consumes.
func AllTopics() []Topic {
	return []Topic{
		TopicNetworkUpdates,
		TopicMemberUpdates,
		TopicGoalUpdates,
		TopicJoinRequests,
		TopicNotifications,
		TopicUserActivity,
	}
}

// ConsumerGroupID returns the logical consumer group for a topic. One active
// subscriber process per topic per group.
func ConsumerGroupID(topic Topic) string {
	return "network-service-" + string(topic)
}
