// Package firestoredoc keeps the school aggregate in a single Cloud Firestore document.
package firestoredoc

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

const (
	Collection = "schools"
	DocID      = "default"
)

// Store is a school.RemoteStore over the document schools/default.
type Store struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

var _ school.RemoteStore = (*Store)(nil) // interface compliance check

// New connects to the Firestore database of the configured project, authenticating with
// the credentials file when given and with the application default credentials otherwise.
func New(ctx context.Context, rc school.RemoteConfig) (*Store, error) {
	var opts []option.ClientOption
	if rc.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(rc.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, rc.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to firestore")
	}
	return &Store{client: client, doc: client.Collection(Collection).Doc(DocID)}, nil
}

func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	snap, err := s.doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "reading firestore document")
	}
	raw, err := fromFields(snap.Data())
	return raw, err == nil, err
}

// Save replaces the document. lastUpdated is set by the server.
func (s *Store) Save(ctx context.Context, doc []byte) error {
	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	fields["lastUpdated"] = firestore.ServerTimestamp
	if _, err := s.doc.Set(ctx, fields); err != nil {
		return errors.Wrap(err, "writing firestore document")
	}
	return nil
}

// Subscribe listens to the document snapshots. The first snapshot is the current document.
func (s *Store) Subscribe(ctx context.Context, onChange func(doc []byte)) error {
	it := s.doc.Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if status.Code(err) == codes.Canceled {
				return nil
			}
			return errors.Wrap(err, "listening to firestore document")
		}
		if !snap.Exists() {
			continue
		}
		raw, err := fromFields(snap.Data())
		if err != nil {
			return err
		}
		onChange(raw)
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// toFields converts a JSON document to Firestore fields. Numbers become doubles,
// which hold every id and count of the aggregate exactly.
func toFields(doc []byte) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, errors.Wrap(err, "decoding school document")
	}
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return fields, nil
}

// fromFields converts Firestore fields back to JSON; timestamps become RFC 3339 strings.
func fromFields(fields map[string]interface{}) ([]byte, error) {
	raw, err := json.Marshal(fields)
	return raw, errors.Wrap(err, "encoding school document")
}
