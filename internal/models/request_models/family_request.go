package request_models

type CreateFamilyRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID           string `json:"userId" binding:"required,uuid"`
	ParentID         string `json:"parentId" binding:"omitempty,uuid"`
	RelationshipType string `json:"relationshipType"`
}

// ReparentRequest with an empty ParentID makes the member a root.
type ReparentRequest struct {
	ParentID string `json:"parentId" binding:"omitempty,uuid"`
}

type SetHeadRequest struct {
	UserID string `json:"userId" binding:"omitempty,uuid"`
}
