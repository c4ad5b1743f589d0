package response_models

import dbm "carnival/internal/models/db_models"

type FamilyTreeSummary struct {
	FamilyID         string            `json:"familyId"`
	RootMemberIDs    []string          `json:"rootMembers"`
	TotalMembers     int               `json:"totalMembers"`
	TotalGenerations int               `json:"totalGenerations"`
	Structure        dbm.TreeStructure `json:"structure"`
}

// TreeMember is the nested display form of a family forest.
type TreeMember struct {
	UserID           string        `json:"userId"`
	Name             string        `json:"name"`
	Generation       int           `json:"generation"`
	RelationshipType string        `json:"relationshipType,omitempty"`
	Children         []*TreeMember `json:"children"`
}

type FamilyTreeView struct {
	FamilyID         string        `json:"familyId"`
	FamilyName       string        `json:"familyName"`
	TotalMembers     int           `json:"totalMembers"`
	TotalGenerations int           `json:"totalGenerations"`
	Roots            []*TreeMember `json:"roots"`
}

type PathStep struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Generation int    `json:"generation"`
}

type FamilyDetail struct {
	dbm.Family
	Tree *FamilyTreeSummary `json:"tree,omitempty"`
}
