package realtime

import "sync"

// Registry tracks which connections are interested in which article. It
// keeps two indexes under one lock: room -> members for dispatch, and
// connection -> rooms so a disconnect can clear every membership in one
// pass without scanning all rooms. Rooms are deleted when their last member
// leaves, so the registry never grows with departed connections.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}
	conns map[*Client]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
		conns: make(map[*Client]map[string]struct{}),
	}
}

// Join adds the connection to the room's subscriber set. Idempotent: a
// connection already present is not duplicated.
func (r *Registry) Join(c *Client, roomKey string) {
	if c == nil || roomKey == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomKey]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[roomKey] = members
	}
	members[c] = struct{}{}

	joined, ok := r.conns[c]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[c] = joined
	}
	joined[roomKey] = struct{}{}
}

// Leave removes the membership. Idempotent no-op if absent.
func (r *Registry) Leave(c *Client, roomKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, roomKey)
}

func (r *Registry) leaveLocked(c *Client, roomKey string) {
	if members, ok := r.rooms[roomKey]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomKey)
		}
	}
	if joined, ok := r.conns[c]; ok {
		delete(joined, roomKey)
		if len(joined) == 0 {
			delete(r.conns, c)
		}
	}
}

// Drop removes the connection from every room it is a member of. Called
// once when the transport detects disconnection.
func (r *Registry) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomKey := range r.conns[c] {
		if members, ok := r.rooms[roomKey]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(r.rooms, roomKey)
			}
		}
	}
	delete(r.conns, c)
}

// Members returns a snapshot of the room's subscribers, safe to iterate
// while joins and leaves proceed concurrently.
func (r *Registry) Members(roomKey string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomKey]
	snapshot := make([]*Client, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// RoomCount returns the number of rooms with at least one subscriber.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SubscriptionCount returns the total number of (connection, room) pairs.
func (r *Registry) SubscriptionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, joined := range r.conns {
		total += len(joined)
	}
	return total
}
