package registry

import "github.com/bwmarrin/discordgo"

// Kind is the application command kind of a descriptor.
type Kind int

const (
	KindChatInput Kind = iota + 1
	KindUser
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindChatInput:
		return "CHAT_INPUT"
	case KindUser:
		return "USER"
	case KindMessage:
		return "MESSAGE"
	default:
		return "UNKNOWN"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Descriptor is the declarative shape the remote API needs to expose a
// command or context menu.
type Descriptor struct {
	Name        string                                `json:"name"`
	Description string                                `json:"description,omitempty"`
	Kind        Kind                                  `json:"kind"`
	Options     []*discordgo.ApplicationCommandOption `json:"options,omitempty"`
	// DefaultMemberPermissions is the union of the required user permissions,
	// or nil when anyone may see the command.
	DefaultMemberPermissions *int64 `json:"default_member_permissions,omitempty"`
}

// ManifestOptions selects which interaction kinds go into the manifest.
type ManifestOptions struct {
	Slash   bool
	Context bool
}

// DefaultManifest includes slash commands and context menus.
func DefaultManifest() ManifestOptions {
	return ManifestOptions{Slash: true, Context: true}
}

// Manifest projects interaction-enabled commands, then enabled context menus,
// each in registration order. The remote API replaces its whole command set
// with this list, so it is always complete.
func (r *Registry) Manifest(opts ManifestOptions) []Descriptor {
	out := make([]Descriptor, 0, len(r.slashOrder)+len(r.contextOrder))
	if opts.Slash {
		for _, d := range r.slashOrder {
			out = append(out, Descriptor{
				Name:                     d.Name,
				Description:              d.Description,
				Kind:                     KindChatInput,
				Options:                  d.Slash.Options,
				DefaultMemberPermissions: permissionUnion(d.UserPermissions),
			})
		}
	}
	if opts.Context {
		for _, c := range r.contextOrder {
			kind := KindUser
			if c.Type == ContextMessage {
				kind = KindMessage
			}
			out = append(out, Descriptor{
				Name:                     c.Name,
				Kind:                     kind,
				DefaultMemberPermissions: permissionUnion(c.UserPermissions),
			})
		}
	}
	return out
}

func permissionUnion(perms []int64) *int64 {
	if len(perms) == 0 {
		return nil
	}
	var bits int64
	for _, p := range perms {
		bits |= p
	}
	return &bits
}
