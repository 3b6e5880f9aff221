package school

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

// Local store keys
const (
	LocalDataKey    = "school_data_local"
	RemoteConfigKey = "school_remote_config"
)

// Remote providers
const (
	ProviderFirestore = "firestore"
	ProviderRedis     = "redis"
)

// RemoteStore is the remote document holding the whole aggregate.
type RemoteStore interface {
	// Load returns the remote document; ok is false when it does not exist yet.
	Load(ctx context.Context) (doc []byte, ok bool, err error)
	// Save writes the whole document, stamped with a server-observed lastUpdated.
	Save(ctx context.Context, doc []byte) error
	// Subscribe calls onChange with every new version of the document until ctx is done.
	Subscribe(ctx context.Context, onChange func(doc []byte)) error
	Close() error
}

// RemoteConfig is the user supplied connection configuration of the remote store.
// Firebase web app configurations are accepted as is.
type RemoteConfig struct {
	Provider          string `json:"provider,omitempty"`
	APIKey            string `json:"apiKey,omitempty"`
	AuthDomain        string `json:"authDomain,omitempty"`
	ProjectID         string `json:"projectId,omitempty"`
	StorageBucket     string `json:"storageBucket,omitempty"`
	MessagingSenderID string `json:"messagingSenderId,omitempty"`
	AppID             string `json:"appId,omitempty"`
	MeasurementID     string `json:"measurementId,omitempty"`
	CredentialsFile   string `json:"credentialsFile,omitempty"`
	RedisURL          string `json:"redisUrl,omitempty"`
}

// Validate checks the fields required by the provider, defaulting it to firestore.
func (rc *RemoteConfig) Validate() error {
	rc.Provider = core.CleanString(rc.Provider, true /* lower */)
	if rc.Provider == "" {
		rc.Provider = ProviderFirestore
	}
	switch rc.Provider {
	case ProviderFirestore:
		if core.CleanString(rc.ProjectID) == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "projectId", Error: "this field is required"})
		}
	case ProviderRedis:
		if core.CleanString(rc.RedisURL) == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "redisUrl", Error: "this field is required"})
		}
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "provider", Error: "must be one of firestore or redis"})
	}
	return nil
}

// ParseRemoteConfig parses a pasted configuration: plain JSON, or the
// `const firebaseConfig = {...};` snippet of the Firebase console.
func ParseRemoteConfig(text string) (RemoteConfig, error) {
	clean := strings.ReplaceAll(text, "const firebaseConfig = ", "")
	clean = strings.ReplaceAll(clean, ";", "")
	clean = strings.TrimSpace(clean)

	var rc RemoteConfig
	if err := json.Unmarshal([]byte(clean), &rc); err != nil {
		return RemoteConfig{}, core.NewValidationError(
			errors.Wrap(err, "invalid configuration"),
			core.FieldError{Field: "config", Error: "invalid JSON configuration"},
		)
	}
	if err := rc.Validate(); err != nil {
		return RemoteConfig{}, err
	}
	return rc, nil
}

// LoadRemoteConfig reads the saved remote configuration; ok is false in local-only mode.
// A saved configuration that no longer parses is treated as absent.
func LoadRemoteConfig(ctx context.Context, kv core.KeyValueStore) (rc RemoteConfig, ok bool, err error) {
	raw, err := kv.Get(ctx, RemoteConfigKey)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return RemoteConfig{}, false, nil
		}
		return RemoteConfig{}, false, errors.Wrap(err, "reading remote config")
	}
	if err := json.Unmarshal(raw, &rc); err != nil {
		return RemoteConfig{}, false, nil
	}
	if err := rc.Validate(); err != nil {
		return RemoteConfig{}, false, nil
	}
	return rc, true, nil
}

func SaveRemoteConfig(ctx context.Context, kv core.KeyValueStore, rc RemoteConfig) error {
	if err := rc.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(rc)
	if err != nil {
		return errors.Wrap(err, "encoding remote config")
	}
	return errors.Wrap(kv.Set(ctx, RemoteConfigKey, raw), "saving remote config")
}

func ClearRemoteConfig(ctx context.Context, kv core.KeyValueStore) error {
	err := kv.Delete(ctx, RemoteConfigKey)
	if err != nil && errors.Cause(err) != core.ErrKeyNotFound {
		return errors.Wrap(err, "clearing remote config")
	}
	return nil
}
