package models

// PortalCredential is one decrypted login record for a journal portal.
type PortalCredential struct {
	URL      string
	Username string
	Password string
}

// StoredCredential is the at-rest form of a credential record. Each field
// is independently AES-GCM encrypted and base64 encoded; a record whose
// fields do not all decrypt to non-empty values is never used.
type StoredCredential struct {
	ID        string `badgerhold:"key" toml:"id"`
	Alias     string `badgerholdIndex:"Alias" toml:"alias" validate:"required"`
	URL       string `toml:"url" validate:"required"`
	Username  string `toml:"username" validate:"required"`
	Password  string `toml:"password" validate:"required"`
	CreatedAt int64  `toml:"-"`
	UpdatedAt int64  `toml:"-"`
}
