package coordinator

import (
	"errors"
	"fmt"
	"sync"
)

// Context-menu entry ids.
const (
	MenuSaveLink      = "saveLink"
	MenuSaveSelection = "saveSelection"
)

// ErrDuplicateMenuID is returned when an id is registered twice without an
// intervening RemoveAll.
var ErrDuplicateMenuID = errors.New("duplicate menu id")

// MenuItem is one context-menu entry.
type MenuItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Contexts []string `json:"contexts"`
}

// DefaultMenus are the entries registered on install.
func DefaultMenus() []MenuItem {
	return []MenuItem{
		{ID: MenuSaveLink, Title: "Save link to Productivity Helper", Contexts: []string{"link"}},
		{ID: MenuSaveSelection, Title: "Save selection as note", Contexts: []string{"selection"}},
	}
}

// MenuRegistry is the process-wide set of registered menu entries.
type MenuRegistry struct {
	mu    sync.Mutex
	items []MenuItem
}

// NewMenuRegistry returns an empty registry.
func NewMenuRegistry() *MenuRegistry {
	return &MenuRegistry{}
}

// Create registers item.
func (r *MenuRegistry) Create(item MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == item.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateMenuID, item.ID)
		}
	}
	r.items = append(r.items, item)
	return nil
}

// RemoveAll drops every entry.
func (r *MenuRegistry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Items returns the registered entries in creation order.
func (r *MenuRegistry) Items() []MenuItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MenuItem, len(r.items))
	copy(out, r.items)
	return out
}

// Click is a context-menu click as reported by the browser.
type Click struct {
	MenuItemID    string `json:"menuItemId"`
	LinkURL       string `json:"linkUrl,omitempty"`
	LinkText      string `json:"linkText,omitempty"`
	SelectionText string `json:"selectionText,omitempty"`
	PageURL       string `json:"pageUrl,omitempty"`
	PageTitle     string `json:"pageTitle,omitempty"`
}
