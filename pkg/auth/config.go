package auth

import (
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

// Config selects the verifiers the server consults.
type Config struct {
	// Static lists users with bcrypt password hashes.
	Static []StaticUser `mapstructure:"static" yaml:"static,omitempty" validate:"dive"`

	// PublicKeys binds users to authorized_keys files.
	PublicKeys []AuthorizedKeysFile `mapstructure:"public_keys" yaml:"public_keys,omitempty" validate:"dive"`

	// WatchAuthorizedKeys reloads authorized_keys files when they change.
	WatchAuthorizedKeys bool `mapstructure:"watch_authorized_keys" yaml:"watch_authorized_keys"`

	// Token enables JWT logins through the password method.
	Token TokenConfig `mapstructure:"token" yaml:"token"`

	// Database verifies against the credential database.
	Database bool `mapstructure:"database" yaml:"database"`
}

// Verifiers holds the verifiers built from a Config.
type Verifiers struct {
	Chain *Chain

	// TrustStore is nil when no authorized_keys files are configured.
	TrustStore *PublicKeyTrustStore
}

// Build creates the verifiers cfg asks for, in the order static, trust store,
// token, database. db may be nil when cfg.Database is false.
func Build(cfg Config, db store.Store) (*Verifiers, error) {
	var chain []Verifier
	out := &Verifiers{}

	if len(cfg.Static) > 0 {
		static, err := NewStaticCredential(cfg.Static)
		if err != nil {
			return nil, err
		}
		chain = append(chain, static)
	}

	if len(cfg.PublicKeys) > 0 {
		ts, err := NewPublicKeyTrustStore(cfg.PublicKeys)
		if err != nil {
			return nil, err
		}
		out.TrustStore = ts
		chain = append(chain, ts)
	}

	if cfg.Token.Enabled {
		tv, err := NewTokenVerifier(cfg.Token)
		if err != nil {
			return nil, err
		}
		chain = append(chain, tv)
	}

	if cfg.Database {
		sv, err := NewStoreVerifier(db)
		if err != nil {
			return nil, err
		}
		chain = append(chain, sv)
	}

	if len(chain) == 0 {
		return nil, ErrNoVerifier
	}
	out.Chain = NewChain(chain...)
	return out, nil
}
