package memory

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/interfaces"
	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = goerr.New("not found")

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every collection behind one lock so that Commit applies a
// change set atomically
type Memory struct {
	mu sync.RWMutex

	records   map[types.ObjectType]map[string]*model.Record
	slugs     map[types.ObjectType]map[string]string // slug -> record ID
	counters  map[types.ObjectType]int
	persons   map[string]*model.Person
	emails    map[string]string // email -> person ID
	relations map[string]*model.Relationship
	snapshots map[string]*model.Snapshot
	acls      map[string]*aclEntry
	cads      map[string]*model.CustomAttributeDefinition
	cavs      map[string]*model.CustomAttributeValue
	comments  map[string]*model.Comment
	evidence  map[string]*model.Evidence
	notifs    map[string]*model.Notification

	record          *recordRepository
	person          *personRepository
	relationship    *relationshipRepository
	snapshot        *snapshotRepository
	accessControl   *accessControlRepository
	customAttribute *customAttributeRepository
	comment         *commentRepository
	evidenceRepo    *evidenceRepository
	notification    *notificationRepository
}

type aclEntry struct {
	list      model.AccessControlList
	personIDs []string
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	m := &Memory{
		records:   make(map[types.ObjectType]map[string]*model.Record),
		slugs:     make(map[types.ObjectType]map[string]string),
		counters:  make(map[types.ObjectType]int),
		persons:   make(map[string]*model.Person),
		emails:    make(map[string]string),
		relations: make(map[string]*model.Relationship),
		snapshots: make(map[string]*model.Snapshot),
		acls:      make(map[string]*aclEntry),
		cads:      make(map[string]*model.CustomAttributeDefinition),
		cavs:      make(map[string]*model.CustomAttributeValue),
		comments:  make(map[string]*model.Comment),
		evidence:  make(map[string]*model.Evidence),
		notifs:    make(map[string]*model.Notification),
	}
	m.record = &recordRepository{m: m}
	m.person = &personRepository{m: m}
	m.relationship = &relationshipRepository{m: m}
	m.snapshot = &snapshotRepository{m: m}
	m.accessControl = &accessControlRepository{m: m}
	m.customAttribute = &customAttributeRepository{m: m}
	m.comment = &commentRepository{m: m}
	m.evidenceRepo = &evidenceRepository{m: m}
	m.notification = &notificationRepository{m: m}
	return m
}

func (m *Memory) Record() interfaces.RecordRepository {
	return m.record
}

func (m *Memory) Person() interfaces.PersonRepository {
	return m.person
}

func (m *Memory) Relationship() interfaces.RelationshipRepository {
	return m.relationship
}

func (m *Memory) Snapshot() interfaces.SnapshotRepository {
	return m.snapshot
}

func (m *Memory) AccessControl() interfaces.AccessControlRepository {
	return m.accessControl
}

func (m *Memory) CustomAttribute() interfaces.CustomAttributeRepository {
	return m.customAttribute
}

func (m *Memory) Comment() interfaces.CommentRepository {
	return m.comment
}

func (m *Memory) Evidence() interfaces.EvidenceRepository {
	return m.evidenceRepo
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func (m *Memory) Close() error {
	return nil
}
