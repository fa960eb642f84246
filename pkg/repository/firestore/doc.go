package firestore

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/model"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Firestore persistence models. Object references are flattened into
// "<Type>:<ID>" keys so that they can be queried with equality filters.

type refDoc struct {
	Type string `firestore:"type"`
	ID   string `firestore:"id"`
}

func toRefDoc(ref model.ObjectRef) refDoc {
	return refDoc{Type: string(ref.Type), ID: ref.ID}
}

func (d refDoc) ref() model.ObjectRef {
	return model.ObjectRef{Type: types.ObjectType(d.Type), ID: d.ID}
}

type recordDoc struct {
	ID                 string    `firestore:"id"`
	Type               string    `firestore:"type"`
	Slug               string    `firestore:"slug"`
	Title              string    `firestore:"title"`
	Description        string    `firestore:"description"`
	Notes              string    `firestore:"notes"`
	Status             string    `firestore:"status"`
	Archived           bool      `firestore:"archived"`
	StartDate          string    `firestore:"start_date"`
	DueDate            string    `firestore:"due_date"`
	EffectiveDate      string    `firestore:"effective_date"`
	FinishedDate       string    `firestore:"finished_date"`
	VerifiedDate       string    `firestore:"verified_date"`
	LastDeprecatedDate string    `firestore:"last_deprecated_date"`
	LastUpdatedBy      string    `firestore:"last_updated_by"`
	CreatedAt          time.Time `firestore:"created_at"`
	UpdatedAt          time.Time `firestore:"updated_at"`
}

func toRecordDoc(r *model.Record) *recordDoc {
	return &recordDoc{
		ID:                 r.ID,
		Type:               string(r.Type),
		Slug:               r.Slug,
		Title:              r.Title,
		Description:        r.Description,
		Notes:              r.Notes,
		Status:             string(r.Status),
		Archived:           r.Archived,
		StartDate:          string(r.StartDate),
		DueDate:            string(r.DueDate),
		EffectiveDate:      string(r.EffectiveDate),
		FinishedDate:       string(r.FinishedDate),
		VerifiedDate:       string(r.VerifiedDate),
		LastDeprecatedDate: string(r.LastDeprecatedDate),
		LastUpdatedBy:      r.LastUpdatedBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (d *recordDoc) model() *model.Record {
	return &model.Record{
		ID:                 d.ID,
		Type:               types.ObjectType(d.Type),
		Slug:               d.Slug,
		Title:              d.Title,
		Description:        d.Description,
		Notes:              d.Notes,
		Status:             types.Status(d.Status),
		Archived:           d.Archived,
		StartDate:          model.Date(d.StartDate),
		DueDate:            model.Date(d.DueDate),
		EffectiveDate:      model.Date(d.EffectiveDate),
		FinishedDate:       model.Date(d.FinishedDate),
		VerifiedDate:       model.Date(d.VerifiedDate),
		LastDeprecatedDate: model.Date(d.LastDeprecatedDate),
		LastUpdatedBy:      d.LastUpdatedBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type personDoc struct {
	ID        string    `firestore:"id"`
	Email     string    `firestore:"email"`
	Name      string    `firestore:"name"`
	Stub      bool      `firestore:"stub"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toPersonDoc(p *model.Person) *personDoc {
	return &personDoc{
		ID:        p.ID,
		Email:     model.NormalizeEmail(p.Email),
		Name:      p.Name,
		Stub:      p.Stub,
		CreatedAt: p.CreatedAt,
	}
}

func (d *personDoc) model() *model.Person {
	return &model.Person{
		ID:        d.ID,
		Email:     d.Email,
		Name:      d.Name,
		Stub:      d.Stub,
		CreatedAt: d.CreatedAt,
	}
}

type relationshipDoc struct {
	ID          string    `firestore:"id"`
	Source      refDoc    `firestore:"source"`
	Destination refDoc    `firestore:"destination"`
	Kind        string    `firestore:"kind"`
	Keys        []string  `firestore:"keys"`
	CreatedAt   time.Time `firestore:"created_at"`
}

func toRelationshipDoc(r *model.Relationship) *relationshipDoc {
	return &relationshipDoc{
		ID:          r.ID,
		Source:      toRefDoc(r.Source),
		Destination: toRefDoc(r.Destination),
		Kind:        r.Kind,
		Keys:        []string{r.Source.String(), r.Destination.String()},
		CreatedAt:   r.CreatedAt,
	}
}

func (d *relationshipDoc) model() *model.Relationship {
	return &model.Relationship{
		ID:          d.ID,
		Source:      d.Source.ref(),
		Destination: d.Destination.ref(),
		Kind:        d.Kind,
		CreatedAt:   d.CreatedAt,
	}
}

type snapshotDoc struct {
	ID        string    `firestore:"id"`
	Parent    refDoc    `firestore:"parent"`
	ParentKey string    `firestore:"parent_key"`
	Child     refDoc    `firestore:"child"`
	ChildSlug string    `firestore:"child_slug"`
	Revision  int       `firestore:"revision"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toSnapshotDoc(s *model.Snapshot) *snapshotDoc {
	return &snapshotDoc{
		ID:        s.ID,
		Parent:    toRefDoc(s.Parent),
		ParentKey: s.Parent.String(),
		Child:     toRefDoc(s.Child),
		ChildSlug: s.ChildSlug,
		Revision:  s.Revision,
		CreatedAt: s.CreatedAt,
	}
}

func (d *snapshotDoc) model() *model.Snapshot {
	return &model.Snapshot{
		ID:        d.ID,
		Parent:    d.Parent.ref(),
		Child:     d.Child.ref(),
		ChildSlug: d.ChildSlug,
		Revision:  d.Revision,
		CreatedAt: d.CreatedAt,
	}
}

// aclDoc stores one access control list with its people
type aclDoc struct {
	ID        string   `firestore:"id"`
	RoleID    string   `firestore:"role_id"`
	Object    refDoc   `firestore:"object"`
	ObjectKey string   `firestore:"object_key"`
	PersonIDs []string `firestore:"person_ids"`
}

type cadDoc struct {
	ID                 string   `firestore:"id"`
	Title              string   `firestore:"title"`
	ObjectType         string   `firestore:"object_type"`
	DefinitionID       string   `firestore:"definition_id"`
	AttributeType      string   `firestore:"attribute_type"`
	Mandatory          bool     `firestore:"mandatory"`
	MultiChoiceOptions []string `firestore:"multi_choice_options"`
}

func toCADDoc(d *model.CustomAttributeDefinition) *cadDoc {
	return &cadDoc{
		ID:                 d.ID,
		Title:              d.Title,
		ObjectType:         string(d.ObjectType),
		DefinitionID:       d.DefinitionID,
		AttributeType:      string(d.AttributeType),
		Mandatory:          d.Mandatory,
		MultiChoiceOptions: d.MultiChoiceOptions,
	}
}

func (d *cadDoc) model() *model.CustomAttributeDefinition {
	return &model.CustomAttributeDefinition{
		ID:                 d.ID,
		Title:              d.Title,
		ObjectType:         types.ObjectType(d.ObjectType),
		DefinitionID:       d.DefinitionID,
		AttributeType:      types.AttributeType(d.AttributeType),
		Mandatory:          d.Mandatory,
		MultiChoiceOptions: d.MultiChoiceOptions,
	}
}

type cavDoc struct {
	ID           string    `firestore:"id"`
	DefinitionID string    `firestore:"definition_id"`
	Object       refDoc    `firestore:"object"`
	ObjectKey    string    `firestore:"object_key"`
	Value        string    `firestore:"value"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

func toCAVDoc(v *model.CustomAttributeValue) *cavDoc {
	return &cavDoc{
		ID:           v.ID,
		DefinitionID: v.DefinitionID,
		Object:       toRefDoc(v.Object),
		ObjectKey:    v.Object.String(),
		Value:        v.Value,
		UpdatedAt:    v.UpdatedAt,
	}
}

func (d *cavDoc) model() *model.CustomAttributeValue {
	return &model.CustomAttributeValue{
		ID:           d.ID,
		DefinitionID: d.DefinitionID,
		Object:       d.Object.ref(),
		Value:        d.Value,
		UpdatedAt:    d.UpdatedAt,
	}
}

type commentDoc struct {
	ID           string    `firestore:"id"`
	Description  string    `firestore:"description"`
	AssigneeType string    `firestore:"assignee_type"`
	AuthorID     string    `firestore:"author_id"`
	CreatedAt    time.Time `firestore:"created_at"`
}

type evidenceDoc struct {
	ID        string    `firestore:"id"`
	Kind      string    `firestore:"kind"`
	Link      string    `firestore:"link"`
	Title     string    `firestore:"title"`
	SourceID  string    `firestore:"source_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

type notificationDoc struct {
	ID        string     `firestore:"id"`
	Kind      string     `firestore:"kind"`
	Object    refDoc     `firestore:"object"`
	Recipient string     `firestore:"recipient"`
	SendOn    string     `firestore:"send_on"`
	Repeating bool       `firestore:"repeating"`
	Sent      bool       `firestore:"sent"`
	SentAt    *time.Time `firestore:"sent_at"`
	CreatedAt time.Time  `firestore:"created_at"`
}

func toNotificationDoc(n *model.Notification) *notificationDoc {
	return &notificationDoc{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Object:    toRefDoc(n.Object),
		Recipient: model.NormalizeEmail(n.Recipient),
		SendOn:    string(n.SendOn),
		Repeating: n.Repeating,
		Sent:      n.SentAt != nil,
		SentAt:    n.SentAt,
		CreatedAt: n.CreatedAt,
	}
}

func (d *notificationDoc) model() *model.Notification {
	return &model.Notification{
		ID:        d.ID,
		Kind:      types.NotificationKind(d.Kind),
		Object:    d.Object.ref(),
		Recipient: d.Recipient,
		SendOn:    model.Date(d.SendOn),
		Repeating: d.Repeating,
		SentAt:    d.SentAt,
		CreatedAt: d.CreatedAt,
	}
}
