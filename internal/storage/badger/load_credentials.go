package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
)

// credentialFile is the on-disk seed format: one file can hold several
// records. Field values are already encrypted; the loader never sees
// plaintext.
//
//	[[credential]]
//	alias    = "w.chen"
//	url      = "<encrypted>"
//	username = "<encrypted>"
//	password = "<encrypted>"
type credentialFile struct {
	Credentials []models.StoredCredential `toml:"credential"`
}

// loadCredentialsFromFiles seeds the credential store from every .toml
// file in dir. Individual file or record failures are logged and skipped;
// the loader never fails startup.
func loadCredentialsFromFiles(ctx context.Context, storage interfaces.CredentialStorage, dir string, logger arbor.ILogger) error {
	logger.Debug().Str("dir", dir).Msg("Loading credential seed files")

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Debug().Str("dir", dir).Msg("Credential seed directory not found, skipping")
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("Failed to read credential seed directory")
		return nil
	}

	validate := validator.New()
	loaded := 0
	skipped := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Failed to read credential file")
			continue
		}

		var file credentialFile
		if err := toml.Unmarshal(content, &file); err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("Failed to parse credential file")
			continue
		}

		for i := range file.Credentials {
			cred := file.Credentials[i]
			if err := validate.Struct(&cred); err != nil {
				logger.Warn().Err(err).Str("file", path).Str("alias", cred.Alias).Msg("Skipping invalid credential record")
				skipped++
				continue
			}
			if cred.ID == "" {
				cred.ID = "cred_" + uuid.New().String()
			}
			if err := storage.StoreCredential(ctx, &cred); err != nil {
				logger.Warn().Err(err).Str("alias", cred.Alias).Msg("Failed to store credential record")
				skipped++
				continue
			}
			loaded++
		}
	}

	logger.Debug().
		Int("loaded", loaded).
		Int("skipped", skipped).
		Msg("Finished loading credential seed files")

	return nil
}
