// Package models defines the domain types for Lorekeep.
package models

import "time"

// EntityType enumerates the kinds of campaign entities. The set is closed:
// every dispatch over entity types goes through the descriptor table below,
// so adding a type is a single registration here.
type EntityType string

const (
	TypeCharacter EntityType = "character"
	TypeLocation  EntityType = "location"
	TypeQuest     EntityType = "quest"
	TypeItem      EntityType = "item"
	TypeFaction   EntityType = "faction"
	TypeLore      EntityType = "lore"
)

// FieldKind classifies how an entity field is stored and edited.
type FieldKind string

const (
	FieldText     FieldKind = "text"      // plain string
	FieldRichText FieldKind = "rich_text" // JSON-serialized Document string
	FieldNumber   FieldKind = "number"
	FieldBool     FieldKind = "bool"
)

// Field describes one named field of an entity type.
type Field struct {
	Name string
	Kind FieldKind
}

// Descriptor holds everything the rest of the system needs to know about an
// entity type: its display label and its field schema.
type Descriptor struct {
	Type   EntityType
	Label  string
	Fields []Field
}

// RichTextFields returns the names of fields stored as Document JSON.
func (d Descriptor) RichTextFields() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Kind == FieldRichText {
			out = append(out, f.Name)
		}
	}
	return out
}

// FieldKindOf returns the kind of the named field, or false if the type has
// no such field.
func (d Descriptor) FieldKindOf(name string) (FieldKind, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return "", false
}

var registry = map[EntityType]Descriptor{
	TypeCharacter: {
		Type:  TypeCharacter,
		Label: "Character",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "description", Kind: FieldRichText},
			{Name: "background", Kind: FieldRichText},
			{Name: "role", Kind: FieldText},
			{Name: "alive", Kind: FieldBool},
		},
	},
	TypeLocation: {
		Type:  TypeLocation,
		Label: "Location",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "description", Kind: FieldRichText},
			{Name: "region", Kind: FieldText},
		},
	},
	TypeQuest: {
		Type:  TypeQuest,
		Label: "Quest",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "description", Kind: FieldRichText},
			{Name: "objectives", Kind: FieldRichText},
			{Name: "status", Kind: FieldText},
		},
	},
	TypeItem: {
		Type:  TypeItem,
		Label: "Item",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "description", Kind: FieldRichText},
			{Name: "rarity", Kind: FieldText},
		},
	},
	TypeFaction: {
		Type:  TypeFaction,
		Label: "Faction",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "description", Kind: FieldRichText},
			{Name: "motto", Kind: FieldText},
		},
	},
	TypeLore: {
		Type:  TypeLore,
		Label: "Lore",
		Fields: []Field{
			{Name: "name", Kind: FieldText},
			{Name: "body", Kind: FieldRichText},
		},
	},
}

// typeOrder keeps listings deterministic.
var typeOrder = []EntityType{
	TypeCharacter, TypeLocation, TypeQuest, TypeItem, TypeFaction, TypeLore,
}

// Describe returns the descriptor for t, or false for an unknown type.
func Describe(t EntityType) (Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

// ValidType reports whether t is a registered entity type.
func ValidType(t EntityType) bool {
	_, ok := registry[t]
	return ok
}

// Types returns all registered entity types in stable order.
func Types() []EntityType {
	out := make([]EntityType, len(typeOrder))
	copy(out, typeOrder)
	return out
}

// Entity is a stored campaign entity. Field values are strings, numbers, or
// booleans; rich-text fields hold a JSON-serialized Document string.
type Entity struct {
	ID        string         `json:"id"`
	Type      EntityType     `json:"type"`
	Name      string         `json:"name"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Relationship is a directed edge between two entities. Source and target
// names/types are denormalized on read for display.
type Relationship struct {
	ID            string     `json:"id"`
	SourceID      string     `json:"source_id"`
	SourceType    EntityType `json:"source_type,omitempty"`
	SourceName    string     `json:"source_name,omitempty"`
	TargetID      string     `json:"target_id"`
	TargetType    EntityType `json:"target_type,omitempty"`
	TargetName    string     `json:"target_name,omitempty"`
	Type          string     `json:"type"`
	Description   string     `json:"description,omitempty"`
	Bidirectional bool       `json:"bidirectional"`
	CreatedAt     time.Time  `json:"created_at"`
}
