// Package owner identifies whose cart an operation acts on: an
// authenticated user or an anonymous guest session. Exactly one of the two
// is ever set; callers thread the value explicitly instead of reading
// ambient request state.
package owner

import "fmt"

type Owner struct {
	userID    uint
	sessionID string
}

func User(id uint) Owner {
	return Owner{userID: id}
}

func Session(id string) Owner {
	return Owner{sessionID: id}
}

func (o Owner) IsUser() bool {
	return o.userID != 0
}

func (o Owner) IsZero() bool {
	return o.userID == 0 && o.sessionID == ""
}

func (o Owner) UserID() (uint, bool) {
	return o.userID, o.userID != 0
}

func (o Owner) SessionID() (string, bool) {
	return o.sessionID, o.userID == 0 && o.sessionID != ""
}

func (o Owner) String() string {
	if o.IsUser() {
		return fmt.Sprintf("user:%d", o.userID)
	}
	if o.sessionID != "" {
		return "session:" + o.sessionID
	}
	return "owner:none"
}
