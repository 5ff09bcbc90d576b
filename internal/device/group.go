package device

import (
	"fmt"
	"time"
)

// DeviceGroup is a named, ordered collection of devices commanded as
// one unit. Membership is static: the group holds device IDs, and a
// group command fans out to the members in stored order.
type DeviceGroup struct { //nolint:revive // device.DeviceGroup is clearer than device.Group in calling code
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DeviceIDs []string  `json:"device_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the group.
func (g *DeviceGroup) DeepCopy() *DeviceGroup {
	if g == nil {
		return nil
	}
	clone := *g
	clone.DeviceIDs = append([]string(nil), g.DeviceIDs...)
	return &clone
}

// GroupCommandResult aggregates the per-member outcomes of one group
// command. Success means every member accepted the command.
type GroupCommandResult struct {
	GroupID     string                   `json:"group_id"`
	CommandType CommandType              `json:"command_type"`
	Success     bool                     `json:"success"`
	Devices     map[string]CommandResult `json:"devices"`
	Timestamp   time.Time                `json:"timestamp"`
}

// CreateGroup stores a device group. The name must be non-empty, the
// group must have at least one member, and every member must be a
// known device. Groups live in memory only; they are cheap to rebuild
// and carry no state of their own.
func (r *Registry) CreateGroup(g *DeviceGroup) (*DeviceGroup, error) {
	if g == nil || g.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidGroup)
	}
	if len(g.DeviceIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one member is required", ErrInvalidGroup)
	}
	if g.ID == "" {
		g.ID = GenerateID()
	}

	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(g.DeviceIDs))
	members := make([]string, 0, len(g.DeviceIDs))
	for _, id := range g.DeviceIDs {
		if _, ok := r.devices[id]; !ok {
			return nil, fmt.Errorf("%w: member %s", ErrDeviceNotFound, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	stored := g.DeepCopy()
	stored.DeviceIDs = members
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.groups[stored.ID] = stored

	r.logger.Info("device group created", "id", stored.ID, "name", stored.Name, "members", len(members))
	return stored.DeepCopy(), nil
}

// GetGroup retrieves a group by ID.
func (r *Registry) GetGroup(id string) (*DeviceGroup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, false
	}
	return g.DeepCopy(), true
}

// Groups returns every known group.
func (r *Registry) Groups() []DeviceGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]DeviceGroup, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, *g.DeepCopy())
	}
	return groups
}

// RemoveGroup deletes a group. Member devices are untouched.
// Returns ErrGroupNotFound for unknown IDs.
func (r *Registry) RemoveGroup(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(r.groups, id)

	r.logger.Info("device group removed", "id", id)
	return nil
}

// pruneGroupMemberLocked drops a device from every group's member
// list. Groups left empty are removed. Caller holds r.mu.
func (r *Registry) pruneGroupMemberLocked(deviceID string) {
	for gid, g := range r.groups {
		kept := g.DeviceIDs[:0]
		for _, id := range g.DeviceIDs {
			if id != deviceID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(g.DeviceIDs) {
			continue
		}
		if len(kept) == 0 {
			delete(r.groups, gid)
			continue
		}
		g.DeviceIDs = kept
		g.UpdatedAt = time.Now().UTC()
	}
}
