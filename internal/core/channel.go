package core

// Channel groups endpoints subscribed to the same name.
type Channel struct {
	Name    string
	members map[string]Endpoint
}

// NewChannel constructs a channel with no members.
func NewChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		members: make(map[string]Endpoint),
	}
}

// Add inserts an endpoint. Returns true if newly added.
func (c *Channel) Add(ep Endpoint) bool {
	if _, exists := c.members[ep.ID()]; exists {
		return false
	}
	c.members[ep.ID()] = ep
	return true
}

// Remove deletes an endpoint. Returns true if removed.
func (c *Channel) Remove(ep Endpoint) bool {
	if _, exists := c.members[ep.ID()]; !exists {
		return false
	}
	delete(c.members, ep.ID())
	return true
}

// Has reports membership.
func (c *Channel) Has(ep Endpoint) bool {
	_, ok := c.members[ep.ID()]
	return ok
}

// Len returns the member count.
func (c *Channel) Len() int {
	return len(c.members)
}

// Empty returns true if no endpoints are in the channel.
func (c *Channel) Empty() bool {
	return len(c.members) == 0
}
