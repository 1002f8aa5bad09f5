package services

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/14sf/Sfm.pay/models"
)

// ContactDirectory lists the contacts a user may start chats with.
type ContactDirectory interface {
	List(ctx context.Context) ([]models.Contact, error)
	Get(ctx context.Context, id string) (models.Contact, error)
}

// DefaultContacts is wired at startup alongside the messaging core.
var DefaultContacts ContactDirectory

// DBContactDirectory reads the contacts table.
type DBContactDirectory struct {
	db *gorm.DB
}

func NewDBContactDirectory(db *gorm.DB) *DBContactDirectory {
	return &DBContactDirectory{db: db}
}

func (d *DBContactDirectory) List(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := d.db.WithContext(ctx).Order("name ASC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (d *DBContactDirectory) Get(ctx context.Context, id string) (models.Contact, error) {
	var contact models.Contact
	err := d.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Contact{}, &NotFoundError{Resource: "contact", ID: id}
	}
	if err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

// MemoryContactDirectory serves a fixed contact list; used in development
// and tests.
type MemoryContactDirectory struct {
	mu       sync.RWMutex
	contacts map[string]models.Contact
	order    []string
}

func NewMemoryContactDirectory(contacts ...models.Contact) *MemoryContactDirectory {
	d := &MemoryContactDirectory{contacts: map[string]models.Contact{}}
	for _, c := range contacts {
		d.contacts[c.ID] = c
		d.order = append(d.order, c.ID)
	}
	return d
}

func (d *MemoryContactDirectory) List(ctx context.Context) ([]models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Contact, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.contacts[id])
	}
	return out, nil
}

func (d *MemoryContactDirectory) Get(ctx context.Context, id string) (models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contact, ok := d.contacts[id]
	if !ok {
		return models.Contact{}, &NotFoundError{Resource: "contact", ID: id}
	}
	return contact, nil
}
