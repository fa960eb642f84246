package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = goerr.New("not found")

const (
	recordsCollection       = "records"
	personsCollection       = "persons"
	relationshipsCollection = "relationships"
	snapshotsCollection     = "snapshots"
	aclCollection           = "access_control_lists"
	cadCollection           = "custom_attribute_definitions"
	cavCollection           = "custom_attribute_values"
	commentsCollection      = "comments"
	evidenceCollection      = "evidence"
	notificationsCollection = "notifications"
	countersCollection      = "counters"

	// Firestore batch operation limits
	firestoreGetAllLimit = 30  // Maximum document references per GetAll
	maxTransactionWrites = 400 // Firestore allows 500 writes per transaction
)

type Firestore struct {
	client           *firestore.Client
	collectionPrefix string

	record          *recordRepository
	person          *personRepository
	relationship    *relationshipRepository
	snapshot        *snapshotRepository
	accessControl   *accessControlRepository
	customAttribute *customAttributeRepository
	comment         *commentRepository
	evidence        *evidenceRepository
	notification    *notificationRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, e.g. "test" -> "test_records"
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// New creates a Firestore repository. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	f.record = &recordRepository{f: f}
	f.person = &personRepository{f: f}
	f.relationship = &relationshipRepository{f: f}
	f.snapshot = &snapshotRepository{f: f}
	f.accessControl = &accessControlRepository{f: f}
	f.customAttribute = &customAttributeRepository{f: f}
	f.comment = &commentRepository{f: f}
	f.evidence = &evidenceRepository{f: f}
	f.notification = &notificationRepository{f: f}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) collection(name string) *firestore.CollectionRef {
	return f.client.Collection(CollectionName(f.collectionPrefix, name))
}

// CollectionName returns the collection name for base under prefix
func CollectionName(prefix, base string) string {
	if prefix != "" {
		return prefix + "_" + base
	}
	return base
}

func (f *Firestore) Record() interfaces.RecordRepository {
	return f.record
}

func (f *Firestore) Person() interfaces.PersonRepository {
	return f.person
}

func (f *Firestore) Relationship() interfaces.RelationshipRepository {
	return f.relationship
}

func (f *Firestore) Snapshot() interfaces.SnapshotRepository {
	return f.snapshot
}

func (f *Firestore) AccessControl() interfaces.AccessControlRepository {
	return f.accessControl
}

func (f *Firestore) CustomAttribute() interfaces.CustomAttributeRepository {
	return f.customAttribute
}

func (f *Firestore) Comment() interfaces.CommentRepository {
	return f.comment
}

func (f *Firestore) Evidence() interfaces.EvidenceRepository {
	return f.evidence
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
