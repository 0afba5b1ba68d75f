// Package notify implements the single-shot change flags that back the
// pull-notification protocol. The room keeps one Flags per member and the
// session one per player; a flag raised by a mutation is observed by exactly
// one Consume call, which lowers it again.
package notify

// Flags maps a user id to their pending-change bit. Flags is not safe for
// concurrent use; callers hold the owning room's lock.
type Flags map[string]bool

func New() Flags {
	return make(Flags)
}

// Add registers a user with a lowered flag.
func (f Flags) Add(userID string) {
	f[userID] = false
}

// Remove drops a user and their flag.
func (f Flags) Remove(userID string) {
	delete(f, userID)
}

// Has reports whether the user is registered.
func (f Flags) Has(userID string) bool {
	_, ok := f[userID]
	return ok
}

// SetAll raises every registered user's flag.
func (f Flags) SetAll() {
	for id := range f {
		f[id] = true
	}
}

// SetOthers raises every flag except the given user's.
func (f Flags) SetOthers(userID string) {
	for id := range f {
		if id == userID {
			continue
		}
		f[id] = true
	}
}

// ClearAll lowers every registered user's flag.
func (f Flags) ClearAll() {
	for id := range f {
		f[id] = false
	}
}

// Consume returns the user's flag and lowers it. A raised flag is reported to
// exactly one caller. Unregistered users read as false.
func (f Flags) Consume(userID string) bool {
	raised, ok := f[userID]
	if !ok {
		return false
	}
	if raised {
		f[userID] = false
	}
	return raised
}

// Peek returns the user's flag without lowering it.
func (f Flags) Peek(userID string) bool {
	return f[userID]
}
