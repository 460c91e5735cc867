package session

// Key addresses one conversation in the state store. It is either Unsaved,
// the conversation that the server has not persisted yet, or Existing(id).
//
// The zero Key is Unsaved. Because the id field is unexported no server
// issued id can collide with the unsaved key.
type Key struct {
	id string
}

// Unsaved is the key of the conversation not yet acknowledged by the server.
var Unsaved = Key{}

// Existing returns the key for a server-issued session id. An empty id
// yields Unsaved.
func Existing(id string) Key {
	return Key{id: id}
}

// IsUnsaved reports whether k is the unsaved key.
func (k Key) IsUnsaved() bool {
	return k.id == ""
}

// ID returns the session id and true, or "" and false for Unsaved.
func (k Key) ID() (string, bool) {
	return k.id, k.id != ""
}

// idPtr returns the session id as sent on the wire: nil for Unsaved.
func (k Key) idPtr() *string {
	if k.IsUnsaved() {
		return nil
	}
	id := k.id
	return &id
}

func (k Key) String() string {
	if k.IsUnsaved() {
		return "unsaved"
	}
	return k.id
}
