package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
)

const (
	alice = "654f86988b3dbc7ac03790a5"
	bob   = "654f86988b3dbc7ac03790a6"
	carol = "654f86988b3dbc7ac03790a7"
)

func TestIsParticipant(t *testing.T) {
	conv := &model.Conversation{Participants: []string{bob, alice}}

	tests := []struct {
		name string
		user string
		want bool
	}{
		{"member", alice, true},
		{"other member", bob, true},
		{"stranger", carol, false},
		{"upper-case id", strings.ToUpper(alice), true},
		{"padded id", " " + bob, true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsParticipant(tt.user, conv))
		})
	}

	assert.False(t, IsParticipant(alice, nil))
}

func TestIsAuthor(t *testing.T) {
	msg := &model.Message{AuthorID: alice}

	assert.True(t, IsAuthor(alice, msg))
	assert.True(t, IsAuthor(strings.ToUpper(alice), msg))
	assert.False(t, IsAuthor(bob, msg))
	assert.False(t, IsAuthor(alice, nil))
}

func TestRequire(t *testing.T) {
	conv := &model.Conversation{Participants: []string{alice}}
	msg := &model.Message{AuthorID: alice}

	assert.NoError(t, RequireParticipant(alice, conv))
	assert.NoError(t, RequireAuthor(alice, msg))

	err := RequireParticipant(carol, conv)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	err = RequireAuthor(bob, msg)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}
