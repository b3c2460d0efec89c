package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	NetworkKeyPrefix = "network:%d"
	MembersKeyPrefix = "network:%d:members"
	ActivityPrefix   = "network:%d:activity"
)

const (
	NetworkTTL  = 10 * time.Minute
	MembersTTL  = 5 * time.Minute
	ActivityTTL = 24 * time.Hour
)

func NetworkKey(networkID uint) string {
	return fmt.Sprintf(NetworkKeyPrefix, networkID)
}

func MembersKey(networkID uint) string {
	return fmt.Sprintf(MembersKeyPrefix, networkID)
}

func ActivityKey(networkID uint) string {
	return fmt.Sprintf(ActivityPrefix, networkID)
}

// InvalidateNetwork drops every cached entry scoped to a network. Membership
// mutations call this so permission checks never act on stale role data.
func InvalidateNetwork(ctx context.Context, networkID uint) {
	InvalidatePattern(ctx, fmt.Sprintf("network:%d:*", networkID))
	Invalidate(ctx, NetworkKey(networkID))
}
