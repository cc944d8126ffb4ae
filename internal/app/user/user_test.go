package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordJSONLayout(t *testing.T) {
	chat := "team"
	data, err := json.Marshal([]Record{
		{Name: "alice", PasswordDigest: "d1", CurrentChat: &chat},
		{Name: "bob", PasswordDigest: "d2"},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"name":"alice","passwordDigest":"d1","currentChat":"team"},
		{"name":"bob","passwordDigest":"d2","currentChat":null}
	]`, string(data))
}

func TestCloneIsDeep(t *testing.T) {
	chat := "team"
	r := Record{Name: "alice", CurrentChat: &chat}
	c := r.Clone()

	*c.CurrentChat = "other"
	assert.Equal(t, "team", *r.CurrentChat)

	name, ok := r.ChatName()
	assert.True(t, ok)
	assert.Equal(t, "team", name)

	_, ok = Record{}.ChatName()
	assert.False(t, ok)
}
