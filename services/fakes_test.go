package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
	"github.com/superfunded/payout_portal/websocket"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStorage) Upload(_ context.Context, objectPath string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.objects[objectPath] = data
	f.types[objectPath] = contentType
	return nil
}

func (f *fakeStorage) PublicURL(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (f *fakePublisher) Publish(e websocket.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type sentEmail struct {
	toName, toEmail, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeMailer) SendEmail(_ context.Context, toName, toEmail, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{toName, toEmail, subject, body})
	return nil
}

func (f *fakeMailer) all() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued []uuid.UUID
}

func (f *fakeIssuer) Issue(_ context.Context, payout models.Payout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = append(f.issued, payout.ID)
	return nil
}

// failingCreateStore delegates everything but inserts.
type failingCreateStore struct {
	services.PayoutStore
}

func (failingCreateStore) CreatePayout(context.Context, *models.Payout) error {
	return errors.New("connection reset")
}

// steppingClock advances a minute on every read.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func proofFrom(name string, data []byte) *services.ProofUpload {
	return &services.ProofUpload{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func pngProof() *services.ProofUpload {
	return proofFrom("proof.png", pngHeader)
}

func createUser(t *testing.T, users *repository.UserRepository, email string, verified, admin bool) *session.Session {
	t.Helper()
	name := "user " + email
	user := &models.User{
		Email:       email,
		Password:    "x",
		DisplayName: &name,
		IsVerified:  verified,
		IsAdmin:     admin,
	}
	require.NoError(t, users.CreateUser(context.Background(), user))
	return session.New(services.ProfileFromUser(user), uuid.NewString(), time.Now().Add(time.Hour))
}

func adminSession() *session.Session {
	return session.New(session.Profile{UserID: uuid.New(), IsAdmin: true, IsVerified: true}, uuid.NewString(), time.Now().Add(time.Hour))
}
