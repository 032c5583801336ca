package permissions

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kevinwu530/querybase/internal/models"
)

// Permission describes an action that can be gated within a workspace,
// together with the minimum membership roles it is granted to.
type Permission struct {
	ID          string
	Module      string
	Roles       []models.WorkspaceRole
	Implies     []string
	Description string
}

type permissionRegistry struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
}

var globalRegistry = &permissionRegistry{
	permissions: make(map[string]*Permission),
}

var (
	errNilPermission   = errors.New("permission: nil definition")
	errEmptyID         = errors.New("permission: id is required")
	errDuplicateID     = errors.New("permission: already registered")
	errSelfImplication = errors.New("permission: cannot imply itself")

	// ErrUnknownPermission indicates a lookup failed because the permission has not been registered.
	ErrUnknownPermission = errors.New("permission: unknown permission")
)

// Register adds a permission definition to the global registry.
func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	id := strings.TrimSpace(perm.ID)
	if id == "" {
		return errEmptyID
	}

	def := clonePermission(perm)
	def.ID = id
	def.Module = strings.TrimSpace(def.Module)

	for _, implied := range def.Implies {
		if implied == id {
			return errSelfImplication
		}
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.permissions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}

	globalRegistry.permissions[id] = def
	return nil
}

// Get returns a copy of the permission definition when registered.
func Get(id string) (*Permission, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	perm, ok := globalRegistry.permissions[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// GetAll returns a copy of all registered permissions keyed by ID.
func GetAll() map[string]*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make(map[string]*Permission, len(globalRegistry.permissions))
	for id, perm := range globalRegistry.permissions {
		out[id] = clonePermission(perm)
	}
	return out
}

// GrantedTo collects the permission IDs a workspace role holds, expanding the
// implication graph so a role granted "member.manage" also holds everything
// it implies.
func GrantedTo(role models.WorkspaceRole) map[string]struct{} {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	granted := make(map[string]struct{})

	var visit func(id string)
	visit = func(id string) {
		if _, seen := granted[id]; seen {
			return
		}
		perm, ok := globalRegistry.permissions[id]
		if !ok {
			return
		}
		granted[id] = struct{}{}
		for _, implied := range perm.Implies {
			visit(implied)
		}
	}

	for id, perm := range globalRegistry.permissions {
		for _, granteeRole := range perm.Roles {
			if granteeRole == role {
				visit(id)
			}
		}
	}

	return granted
}

func mustRegister(perm *Permission) {
	if err := Register(perm); err != nil {
		panic(err)
	}
}

func clonePermission(perm *Permission) *Permission {
	cpy := *perm
	cpy.Roles = append([]models.WorkspaceRole(nil), perm.Roles...)
	cpy.Implies = append([]string(nil), perm.Implies...)
	return &cpy
}
