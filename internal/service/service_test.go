package service

import (
	"testing"
	"time"

	"github.com/atinyakov/nilavanti/internal/security"
)

const masterSecret = "nilavanti"

type harness struct {
	svc      *Service
	users    *memUsers
	sessions *memSessions
	resets   *memResets
	notifier *captureNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:    &memUsers{},
		sessions: newMemSessions(),
		resets:   &memResets{},
		notifier: &captureNotifier{},
	}
	h.svc = NewAuthService(Dependencies{
		Users:    h.users,
		Sessions: h.sessions,
		Resets:   h.resets,
		Hasher:   plainHasher{},
		Tokens:   security.NewTokenIssuer("test-secret"),
		Notifier: h.notifier,
	}, Settings{
		MasterPasswordHash: "hash:" + masterSecret,
		SessionTTL:         30 * 24 * time.Hour,
		ResetTTL:           15 * time.Minute,
	})
	h.svc.newID = seqIDs("id")
	return h
}
