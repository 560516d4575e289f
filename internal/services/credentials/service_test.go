package credentials

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeStorage struct {
	records []*models.StoredCredential
}

func (f *fakeStorage) StoreCredential(context.Context, *models.StoredCredential) error { return nil }

func (f *fakeStorage) FindByAlias(_ context.Context, alias string) ([]*models.StoredCredential, error) {
	var out []*models.StoredCredential
	for _, rec := range f.records {
		if rec.Alias == alias {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStorage) ListCredentials(context.Context) ([]*models.StoredCredential, error) {
	return f.records, nil
}

func (f *fakeStorage) DeleteCredential(context.Context, string) error { return nil }

func newSecrets(t *testing.T) *secrets.Service {
	t.Helper()
	svc, err := secrets.NewService(hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef")), arbor.NewLogger())
	require.NoError(t, err)
	return svc
}

func encRecord(t *testing.T, sec *secrets.Service, id, alias, url, username, password string) *models.StoredCredential {
	t.Helper()
	encURL, err := sec.Encrypt(url)
	require.NoError(t, err)
	encUser, err := sec.Encrypt(username)
	require.NoError(t, err)
	encPass, err := sec.Encrypt(password)
	require.NoError(t, err)
	return &models.StoredCredential{ID: id, Alias: alias, URL: encURL, Username: encUser, Password: encPass}
}

func TestMatchesForAlias_DecryptsAllFields(t *testing.T) {
	sec := newSecrets(t)
	storage := &fakeStorage{records: []*models.StoredCredential{
		encRecord(t, sec, "c1", "w.chen", "https://www.editorialmanager.com/jors/", "wchen", "pw1"),
		encRecord(t, sec, "c2", "w.chen", "https://mc.manuscriptcentral.com/aej", "wchen2", "pw2"),
		encRecord(t, sec, "c3", "other", "https://susy.mdpi.com/", "x", "y"),
	}}
	svc := NewService(storage, sec, arbor.NewLogger())

	matches, err := svc.MatchesForAlias(context.Background(), "w.chen")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "https://www.editorialmanager.com/jors/", matches[0].URL)
	assert.Equal(t, "wchen", matches[0].Username)
	assert.Equal(t, "pw1", matches[0].Password)
}

func TestMatchesForAlias_BadFieldDropsWholeRecord(t *testing.T) {
	sec := newSecrets(t)
	good := encRecord(t, sec, "c1", "w.chen", "https://ok.example/", "user", "pw")
	broken := encRecord(t, sec, "c2", "w.chen", "https://bad.example/", "user", "pw")
	broken.Password = "not-decryptable"
	empty := encRecord(t, sec, "c3", "w.chen", "https://empty.example/", "", "pw")

	storage := &fakeStorage{records: []*models.StoredCredential{good, broken, empty}}
	svc := NewService(storage, sec, arbor.NewLogger())

	matches, err := svc.MatchesForAlias(context.Background(), "w.chen")
	require.NoError(t, err)
	// broken password and empty username each exclude their whole record
	require.Len(t, matches, 1)
	assert.Equal(t, "https://ok.example/", matches[0].URL)
}

func TestMatchesForAlias_NoMatches(t *testing.T) {
	svc := NewService(&fakeStorage{}, newSecrets(t), arbor.NewLogger())

	matches, err := svc.MatchesForAlias(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchesForAlias_EmptyAlias(t *testing.T) {
	svc := NewService(&fakeStorage{}, newSecrets(t), arbor.NewLogger())

	_, err := svc.MatchesForAlias(context.Background(), "")
	require.Error(t, err)
}
