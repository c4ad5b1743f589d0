package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Family struct {
	BaseModel
	Name           string     `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Description    string     `json:"description"`
	HeadOfFamilyID *uuid.UUID `gorm:"type:uuid" json:"headOfFamilyId,omitempty"`
	IsActive       bool       `gorm:"not null" json:"isActive"`

	Members []User `gorm:"foreignKey:FamilyID" json:"members,omitempty"`
}

type RelationshipType string

const (
	RelFather      RelationshipType = "father"
	RelMother      RelationshipType = "mother"
	RelSon         RelationshipType = "son"
	RelDaughter    RelationshipType = "daughter"
	RelSibling     RelationshipType = "sibling"
	RelSpouse      RelationshipType = "spouse"
	RelGrandparent RelationshipType = "grandparent"
	RelGrandchild  RelationshipType = "grandchild"
	RelUncle       RelationshipType = "uncle"
	RelAunt        RelationshipType = "aunt"
	RelCousin      RelationshipType = "cousin"
	RelOther       RelationshipType = "other"
)

func (r RelationshipType) Valid() bool {
	switch r {
	case RelFather, RelMother, RelSon, RelDaughter, RelSibling, RelSpouse,
		RelGrandparent, RelGrandchild, RelUncle, RelAunt, RelCousin, RelOther:
		return true
	}
	return false
}

// FamilyNode places one family member in the family's forest.
type FamilyNode struct {
	BaseModel
	FamilyID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_family_nodes_member" json:"familyId"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_family_nodes_member" json:"userId"`
	ParentID         *uuid.UUID       `gorm:"type:uuid;index" json:"parentId,omitempty"`
	Generation       int              `gorm:"not null;index" json:"generation"`
	RelationshipType RelationshipType `gorm:"size:20" json:"relationshipType,omitempty"`
}

type TreeNode struct {
	UserID           string `json:"userId"`
	ParentID         string `json:"parentId,omitempty"`
	Name             string `json:"name"`
	Generation       int    `json:"generation"`
	RelationshipType string `json:"relationshipType,omitempty"`
}

// TreeStructure is the persisted shape of a built family forest. Children is
// keyed by parent user id and lists child user ids in insertion order.
type TreeStructure struct {
	Nodes    []TreeNode          `json:"nodes"`
	Children map[string][]string `json:"children"`
}

// FamilyTree caches the summary of the last successful rebuild.
type FamilyTree struct {
	BaseModel
	FamilyID         uuid.UUID                         `gorm:"type:uuid;uniqueIndex;not null" json:"familyId"`
	Name             string                            `json:"name"`
	RootMemberIDs    datatypes.JSONSlice[string]       `json:"rootMembers"`
	TotalMembers     int                               `gorm:"not null" json:"totalMembers"`
	TotalGenerations int                               `gorm:"not null" json:"totalGenerations"`
	Structure        datatypes.JSONType[TreeStructure] `json:"structure"`
}
