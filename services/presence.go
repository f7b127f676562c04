package services

import (
	"log/slog"
	"time"

	"chat-mesh/domain/event"
	"chat-mesh/repositories"
)

// PresenceTracker maintains the online flag and last-seen timestamp on the
// external user directory. It emits a user-status event only while the
// local session is Active, so bootstrap and teardown never produce noisy
// self-events before listeners are attached.
type PresenceTracker struct {
	log       *slog.Logger
	directory repositories.IUserDirectory
	active    func() bool
	emit      func(p event.Presence)
}

func NewPresenceTracker(
	log *slog.Logger,
	directory repositories.IUserDirectory,
	active func() bool,
	emit func(p event.Presence),
) *PresenceTracker {
	return &PresenceTracker{log: log, directory: directory, active: active, emit: emit}
}

// UpdateStatus looks up the user and persists the new presence fields.
// Unknown users are a no-op. Directory writes are best-effort: a failed
// save costs at most a stale indicator until the next update.
func (t *PresenceTracker) UpdateStatus(userID string, online bool) {
	users := t.directory.GetUsers()

	found := false
	for i := range users {
		if users[i].ID == userID {
			users[i].Online = online
			users[i].LastSeen = time.Now().UTC()
			found = true
			break
		}
	}
	if !found {
		t.log.Debug("Presence update for unknown user", "userId", userID)
		return
	}

	if err := t.directory.SaveUsers(users); err != nil {
		t.log.Warn("Directory save failed, presence may be stale",
			"userId", userID, "error", err)
	}

	if t.active() {
		t.emit(event.Presence{UserID: userID, Online: online})
	}
}
