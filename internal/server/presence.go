package server

import (
	"log"
	"sync"
)

// PresenceStore persists online transitions. Satisfied by the chat
// repository.
type PresenceStore interface {
	SetOnlineStatus(accountId int, online bool) error
}

// Presence is the process-wide registry of live sessions: which clients
// subscribe to which room, which rooms each user currently holds, and the
// set of online users. All mutation goes through the single mutex; storage
// writes happen outside it.
type Presence struct {
	log   *log.Logger
	store PresenceStore

	mu        sync.Mutex
	rooms     map[string]map[*Client]struct{}
	userRooms map[int]map[string]struct{}
	online    map[int]struct{}
}

func NewPresence(logger *log.Logger, store PresenceStore) *Presence {
	return &Presence{
		log:       logger,
		store:     store,
		rooms:     make(map[string]map[*Client]struct{}),
		userRooms: make(map[int]map[string]struct{}),
		online:    make(map[int]struct{}),
	}
}

// Register adds a session to a room and marks its user online. The first
// session of a user persists online=true and clears last_seen.
func (p *Presence) Register(c *Client, roomId string, userId int) {
	p.mu.Lock()
	if p.rooms[roomId] == nil {
		p.rooms[roomId] = make(map[*Client]struct{})
	}
	p.rooms[roomId][c] = struct{}{}

	if p.userRooms[userId] == nil {
		p.userRooms[userId] = make(map[string]struct{})
	}
	p.userRooms[userId][roomId] = struct{}{}

	_, wasOnline := p.online[userId]
	p.online[userId] = struct{}{}
	p.mu.Unlock()

	if !wasOnline {
		if err := p.store.SetOnlineStatus(userId, true); err != nil {
			p.log.Printf("persist online status for user %d: %v", userId, err)
		}
	}
}

// Unregister removes a session from a room, pruning the room entry when it
// empties. The room leaves the user's room-set unconditionally for this
// disconnect; when the room-set empties the user goes offline and last_seen
// is persisted in a detached goroutine that the disconnect path never waits
// on. A crash before it runs leaves last_seen stale, which is accepted.
func (p *Presence) Unregister(c *Client, roomId string, userId int) {
	p.mu.Lock()
	if clients, ok := p.rooms[roomId]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(p.rooms, roomId)
		}
	}

	var wentOffline bool
	if roomSet, ok := p.userRooms[userId]; ok {
		delete(roomSet, roomId)
		if len(roomSet) == 0 {
			delete(p.userRooms, userId)
			delete(p.online, userId)
			wentOffline = true
		}
	}
	p.mu.Unlock()

	if wentOffline {
		go func() {
			if err := p.store.SetOnlineStatus(userId, false); err != nil {
				p.log.Printf("persist offline status for user %d: %v", userId, err)
			}
		}()
	}
}

// IsOnline reports in-memory state only, it never queries storage.
func (p *Presence) IsOnline(userId int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.online[userId]
	return ok
}

// OnlineUsersIn scans the user room-sets for members of roomId. O(users),
// acceptable because direct-chat rooms hold two participants.
func (p *Presence) OnlineUsersIn(roomId string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var users []int
	for userId, roomSet := range p.userRooms {
		if _, ok := roomSet[roomId]; ok {
			users = append(users, userId)
		}
	}
	return users
}

// snapshotRoom copies a room's client set so broadcasts never iterate the
// live map.
func (p *Presence) snapshotRoom(roomId string) []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	clients := make([]*Client, 0, len(p.rooms[roomId]))
	for c := range p.rooms[roomId] {
		clients = append(clients, c)
	}
	return clients
}

// snapshotAll copies every live client, used for shutdown.
func (p *Presence) snapshotAll() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	var clients []*Client
	for _, roomClients := range p.rooms {
		for c := range roomClients {
			clients = append(clients, c)
		}
	}
	return clients
}
