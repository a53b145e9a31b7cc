package repository

import (
	"context"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// ContactsRepository emergency_contact 访问接口
type ContactsRepository interface {
	ListContacts(ctx context.Context, impairedUserID int64) ([]domain.EmergencyContact, error)
	GetContact(ctx context.Context, impairedUserID, contactID int64) (*domain.EmergencyContact, error)
	CreateContact(ctx context.Context, c *domain.EmergencyContact) (int64, error)
	DeleteContact(ctx context.Context, impairedUserID, contactID int64) error
}

type ContactsRepo struct {
	store Store
}

func NewContactsRepo(store Store) *ContactsRepo {
	return &ContactsRepo{store: store}
}

var _ ContactsRepository = (*ContactsRepo)(nil)

var errContactNotFound = domain.E(domain.KindNotFound, "emergency contact doesn't exist")

// ListContacts 按 id 升序返回，无记录时返回空切片
func (r *ContactsRepo) ListContacts(ctx context.Context, impairedUserID int64) ([]domain.EmergencyContact, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table: TableEmergencyContact,
		Where: []Predicate{Eq("impaired_user_id", impairedUserID)},
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.EmergencyContact, 0, len(res.Rows))
	for _, rec := range res.Rows {
		out = append(out, contactFromRecord(rec))
	}
	return out, nil
}

func (r *ContactsRepo) GetContact(ctx context.Context, impairedUserID, contactID int64) (*domain.EmergencyContact, error) {
	res, err := r.store.Get(ctx, Lookup{
		Table:  TableEmergencyContact,
		Where:  []Predicate{Eq("impaired_user_id", impairedUserID), Eq("id", contactID)},
		Single: true,
	})
	if err != nil {
		return nil, err
	}
	rec, ok := res.One()
	if !ok {
		return nil, errContactNotFound
	}
	c := contactFromRecord(rec)
	return &c, nil
}

// CreateContact stores name and phone exactly as given.
func (r *ContactsRepo) CreateContact(ctx context.Context, c *domain.EmergencyContact) (int64, error) {
	id, err := r.store.Insert(ctx, TableEmergencyContact, []Predicate{
		Eq("impaired_user_id", c.ImpairedUserID),
		Eq("contact_name", c.Name),
		Eq("contact_tel", c.Phone),
	})
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

// DeleteContact 只删除属于 impairedUserID 的联系人
func (r *ContactsRepo) DeleteContact(ctx context.Context, impairedUserID, contactID int64) error {
	n, err := r.store.Delete(ctx, TableEmergencyContact, []Predicate{
		Eq("id", contactID),
		Eq("impaired_user_id", impairedUserID),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errContactNotFound
	}
	return nil
}

func contactFromRecord(rec Record) domain.EmergencyContact {
	return domain.EmergencyContact{
		ID:             rec.Int64("id"),
		ImpairedUserID: rec.Int64("impaired_user_id"),
		Name:           rec.String("contact_name"),
		Phone:          rec.String("contact_tel"),
	}
}
