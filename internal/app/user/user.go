/*
Package user defines the durable user record kept by the relay.

A Record is created on registration and is the unit of persistence for every
user-table backend. Its JSON form is the on-disk layout of the user table.
*/
package user

// Record is one registered user.
type Record struct {
	// Name is the unique key of the user table.
	Name string `json:"name"`

	// PasswordDigest is the opaque one-way digest of the user's secret.
	PasswordDigest string `json:"passwordDigest"`

	// CurrentChat is the chat the user last started or joined, nil when none.
	CurrentChat *string `json:"currentChat"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r.CurrentChat != nil {
		chat := *r.CurrentChat
		r.CurrentChat = &chat
	}
	return r
}

// ChatName returns the current chat and whether one is set.
func (r Record) ChatName() (string, bool) {
	if r.CurrentChat == nil {
		return "", false
	}
	return *r.CurrentChat, true
}
