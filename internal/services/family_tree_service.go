package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

// forest is a family's nodes arranged by parent. Roots and every child list
// keep the order the nodes were given in.
type forest struct {
	roots       []uuid.UUID
	parents     map[uuid.UUID]uuid.UUID
	children    map[uuid.UUID][]uuid.UUID
	generations map[uuid.UUID]int
	maxGen      int
}

func (f *forest) totalGenerations() int {
	if len(f.generations) == 0 {
		return 0
	}
	return f.maxGen + 1
}

// buildForest arranges nodes into a forest. A parent id that is not one of
// the nodes counts as no parent. It fails with ErrCyclicRelationship when any
// node is its own ancestor.
func buildForest(nodes []dbm.FamilyNode) (*forest, error) {
	index := make(map[uuid.UUID]*dbm.FamilyNode, len(nodes))
	for i := range nodes {
		index[nodes[i].UserID] = &nodes[i]
	}

	parentOf := func(n *dbm.FamilyNode) (uuid.UUID, bool) {
		if n.ParentID == nil {
			return uuid.Nil, false
		}
		if _, ok := index[*n.ParentID]; !ok {
			return uuid.Nil, false
		}
		return *n.ParentID, true
	}

	// acyclic marks nodes whose ancestor chain is known to end at a root.
	acyclic := make(map[uuid.UUID]bool, len(nodes))
	for i := range nodes {
		seen := map[uuid.UUID]bool{}
		cur := &nodes[i]
		var chain []uuid.UUID
		for {
			if acyclic[cur.UserID] {
				break
			}
			if seen[cur.UserID] {
				return nil, fmt.Errorf("%w: member %s is their own ancestor", utils.ErrCyclicRelationship, cur.UserID)
			}
			seen[cur.UserID] = true
			chain = append(chain, cur.UserID)
			pid, ok := parentOf(cur)
			if !ok {
				break
			}
			cur = index[pid]
		}
		for _, id := range chain {
			acyclic[id] = true
		}
	}

	f := &forest{
		parents:     make(map[uuid.UUID]uuid.UUID),
		children:    make(map[uuid.UUID][]uuid.UUID),
		generations: make(map[uuid.UUID]int, len(nodes)),
	}
	for i := range nodes {
		n := &nodes[i]
		if pid, ok := parentOf(n); ok {
			f.parents[n.UserID] = pid
			f.children[pid] = append(f.children[pid], n.UserID)
		} else {
			f.roots = append(f.roots, n.UserID)
		}
	}

	queue := make([]uuid.UUID, 0, len(nodes))
	for _, r := range f.roots {
		f.generations[r] = 0
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		gen := f.generations[id]
		if gen > f.maxGen {
			f.maxGen = gen
		}
		for _, child := range f.children[id] {
			f.generations[child] = gen + 1
			queue = append(queue, child)
		}
	}
	return f, nil
}

func (f *forest) structure(nodes []dbm.FamilyNode, names map[uuid.UUID]string) dbm.TreeStructure {
	s := dbm.TreeStructure{
		Nodes:    make([]dbm.TreeNode, 0, len(nodes)),
		Children: make(map[string][]string, len(f.children)),
	}
	for _, n := range nodes {
		tn := dbm.TreeNode{
			UserID:           n.UserID.String(),
			Name:             names[n.UserID],
			Generation:       f.generations[n.UserID],
			RelationshipType: string(n.RelationshipType),
		}
		if pid, ok := f.parents[n.UserID]; ok {
			tn.ParentID = pid.String()
		}
		s.Nodes = append(s.Nodes, tn)
	}
	for parent, kids := range f.children {
		ids := make([]string, len(kids))
		for i, k := range kids {
			ids[i] = k.String()
		}
		s.Children[parent.String()] = ids
	}
	return s
}

type FamilyTreeServiceInterface interface {
	RebuildTree(ctx context.Context, familyID uuid.UUID) (*response_models.FamilyTreeSummary, error)
	GetTree(ctx context.Context, familyID uuid.UUID) (*response_models.FamilyTreeView, error)
	GenerationMembers(ctx context.Context, familyID uuid.UUID, generation int) ([]dbm.User, error)
	MemberPath(ctx context.Context, userID uuid.UUID) ([]response_models.PathStep, error)
	AddMember(ctx context.Context, familyID uuid.UUID, req request_models.AddMemberRequest) (*response_models.FamilyTreeSummary, error)
	RemoveMember(ctx context.Context, familyID, userID uuid.UUID) (*response_models.FamilyTreeSummary, error)
	Reparent(ctx context.Context, familyID, userID uuid.UUID, parentID *uuid.UUID) (*response_models.FamilyTreeSummary, error)
}

type FamilyTreeService struct {
	familyRepo repositories.FamilyRepository
	userRepo   repositories.UserRepository
	timeout    time.Duration
	log        *zap.Logger
}

func NewFamilyTreeService(
	familyRepo repositories.FamilyRepository,
	userRepo repositories.UserRepository,
	cfg *config.Config,
	log *zap.Logger,
) FamilyTreeServiceInterface {
	return &FamilyTreeService{
		familyRepo: familyRepo,
		userRepo:   userRepo,
		timeout:    cfg.DB.QueryTimeout,
		log:        log.Named("family_tree"),
	}
}

// snapshot is what a tree read uses.
type snapshot struct {
	family *dbm.Family
	nodes  []dbm.FamilyNode
	names  map[uuid.UUID]string
}

func (s *FamilyTreeService) load(ctx context.Context, familyID uuid.UUID) (*snapshot, error) {
	family, err := s.familyRepo.FindByID(ctx, familyID)
	if err != nil {
		return nil, storeErr(err, "family")
	}
	if family == nil {
		return nil, notFoundf("family %s", familyID)
	}

	nodes, err := s.familyRepo.ListNodes(ctx, familyID)
	if err != nil {
		return nil, storeErr(err, "family nodes")
	}

	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.UserID
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "family members")
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName()
	}
	return &snapshot{family: family, nodes: nodes, names: names}, nil
}

// treeWrite turns a built forest into the rows UpdateTree saves and the
// summary returned to callers.
func treeWrite(state repositories.TreeState, f *forest, change *repositories.ParentChange) (*repositories.TreeWrite, *response_models.FamilyTreeSummary) {
	roots := make([]string, len(f.roots))
	for i, r := range f.roots {
		roots[i] = r.String()
	}
	structure := f.structure(state.Nodes, state.Names)

	row := &dbm.FamilyTree{
		FamilyID:         state.Family.ID,
		Name:             state.Family.Name,
		RootMemberIDs:    roots,
		TotalMembers:     len(state.Nodes),
		TotalGenerations: f.totalGenerations(),
		Structure:        datatypes.NewJSONType(structure),
	}
	w := &repositories.TreeWrite{Generations: f.generations, Summary: row, Reparent: change}
	return w, &response_models.FamilyTreeSummary{
		FamilyID:         state.Family.ID.String(),
		RootMemberIDs:    roots,
		TotalMembers:     row.TotalMembers,
		TotalGenerations: row.TotalGenerations,
		Structure:        structure,
	}
}

// updateTree runs build under the family lock and maps store errors.
func (s *FamilyTreeService) updateTree(ctx context.Context, familyID uuid.UUID, build func(repositories.TreeState) (*repositories.TreeWrite, error)) error {
	err := s.familyRepo.UpdateTree(ctx, familyID, build)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundf("family %s", familyID)
	case errors.Is(err, utils.ErrCyclicRelationship), errors.Is(err, utils.ErrNotFound), errors.Is(err, utils.ErrValidation):
		return err
	}
	return storeErr(err, "family tree")
}

func (s *FamilyTreeService) RebuildTree(ctx context.Context, familyID uuid.UUID) (*response_models.FamilyTreeSummary, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var summary *response_models.FamilyTreeSummary
	err := s.updateTree(ctx, familyID, func(state repositories.TreeState) (*repositories.TreeWrite, error) {
		f, err := buildForest(state.Nodes)
		if err != nil {
			return nil, err
		}
		var w *repositories.TreeWrite
		w, summary = treeWrite(state, f, nil)
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *FamilyTreeService) GetTree(ctx context.Context, familyID uuid.UUID) (*response_models.FamilyTreeView, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.load(ctx, familyID)
	if err != nil {
		return nil, err
	}
	f, err := buildForest(snap.nodes)
	if err != nil {
		return nil, err
	}

	rel := make(map[uuid.UUID]string, len(snap.nodes))
	for _, n := range snap.nodes {
		rel[n.UserID] = string(n.RelationshipType)
	}
	var expand func(id uuid.UUID) *response_models.TreeMember
	expand = func(id uuid.UUID) *response_models.TreeMember {
		m := &response_models.TreeMember{
			UserID:           id.String(),
			Name:             snap.names[id],
			Generation:       f.generations[id],
			RelationshipType: rel[id],
			Children:         []*response_models.TreeMember{},
		}
		for _, child := range f.children[id] {
			m.Children = append(m.Children, expand(child))
		}
		return m
	}

	view := &response_models.FamilyTreeView{
		FamilyID:         snap.family.ID.String(),
		FamilyName:       snap.family.Name,
		TotalMembers:     len(snap.nodes),
		TotalGenerations: f.totalGenerations(),
		Roots:            make([]*response_models.TreeMember, 0, len(f.roots)),
	}
	for _, r := range f.roots {
		view.Roots = append(view.Roots, expand(r))
	}
	return view, nil
}

func (s *FamilyTreeService) GenerationMembers(ctx context.Context, familyID uuid.UUID, generation int) ([]dbm.User, error) {
	if generation < 0 {
		return nil, validationf("generation must not be negative")
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	nodes, err := s.familyRepo.NodesByGeneration(ctx, familyID, generation)
	if err != nil {
		return nil, storeErr(err, "family nodes")
	}
	if len(nodes) == 0 {
		return []dbm.User{}, nil
	}
	order := make(map[uuid.UUID]int, len(nodes))
	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.UserID
		order[n.UserID] = i
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "family members")
	}
	sort.Slice(users, func(i, j int) bool { return order[users[i].ID] < order[users[j].ID] })
	return users, nil
}

// MemberPath returns the chain of members from the member's root down to
// the member.
func (s *FamilyTreeService) MemberPath(ctx context.Context, userID uuid.UUID) ([]response_models.PathStep, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	node, err := s.familyRepo.FindNodeByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "family node")
	}
	if node == nil {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, storeErr(err, "user")
		}
		if user == nil {
			return nil, notFoundf("user %s", userID)
		}
		return []response_models.PathStep{{UserID: user.ID.String(), Name: user.FullName()}}, nil
	}

	snap, err := s.load(ctx, node.FamilyID)
	if err != nil {
		return nil, err
	}
	f, err := buildForest(snap.nodes)
	if err != nil {
		return nil, err
	}
	index := make(map[uuid.UUID]dbm.FamilyNode, len(snap.nodes))
	for _, n := range snap.nodes {
		index[n.UserID] = n
	}

	var path []response_models.PathStep
	cur, ok := index[userID]
	for ok {
		path = append(path, response_models.PathStep{
			UserID:     cur.UserID.String(),
			Name:       snap.names[cur.UserID],
			Generation: f.generations[cur.UserID],
		})
		pid, has := f.parents[cur.UserID]
		if !has {
			break
		}
		cur, ok = index[pid]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

func (s *FamilyTreeService) AddMember(ctx context.Context, familyID uuid.UUID, req request_models.AddMemberRequest) (*response_models.FamilyTreeSummary, error) {
	userID, err := parseID(req.UserID, "userId")
	if err != nil {
		return nil, err
	}
	parentID, err := parseOptionalID(req.ParentID, "parentId")
	if err != nil {
		return nil, err
	}
	if parentID != nil && *parentID == userID {
		return nil, validationf("a member cannot be their own parent")
	}
	rel := dbm.RelationshipType(req.RelationshipType)
	if rel != "" && !rel.Valid() {
		return nil, validationf("unknown relationship type %q", req.RelationshipType)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	family, err := s.familyRepo.FindByID(ctx, familyID)
	if err != nil {
		return nil, storeErr(err, "family")
	}
	if family == nil {
		return nil, notFoundf("family %s", familyID)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if user == nil {
		return nil, notFoundf("user %s", userID)
	}

	existing, err := s.familyRepo.FindNodeByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "family node")
	}
	if existing != nil && existing.FamilyID == familyID {
		return nil, fmt.Errorf("%w: user is already a member of this family", utils.ErrConflict)
	}

	if parentID != nil {
		parent, err := s.familyRepo.FindNodeByUser(ctx, *parentID)
		if err != nil {
			return nil, storeErr(err, "family node")
		}
		if parent == nil || parent.FamilyID != familyID {
			return nil, validationf("parent must be a member of the family")
		}
	}

	node := &dbm.FamilyNode{
		FamilyID:         familyID,
		UserID:           userID,
		ParentID:         parentID,
		RelationshipType: rel,
	}
	if err := s.familyRepo.AddMember(ctx, node); err != nil {
		return nil, storeErr(err, "family member")
	}
	s.log.Info("family member added",
		zap.String("family_id", familyID.String()),
		zap.String("user_id", userID.String()))

	if existing != nil {
		if _, err := s.RebuildTree(ctx, existing.FamilyID); err != nil {
			s.log.Warn("rebuild of previous family failed",
				zap.String("family_id", existing.FamilyID.String()), zap.Error(err))
		}
	}
	return s.RebuildTree(ctx, familyID)
}

// RemoveMember takes the user out of the family. Their children become roots.
func (s *FamilyTreeService) RemoveMember(ctx context.Context, familyID, userID uuid.UUID) (*response_models.FamilyTreeSummary, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.familyRepo.RemoveMember(ctx, familyID, userID); err != nil {
		return nil, storeErr(err, "family member")
	}
	s.log.Info("family member removed",
		zap.String("family_id", familyID.String()),
		zap.String("user_id", userID.String()))
	return s.RebuildTree(ctx, familyID)
}

// Reparent moves a member under parentID, or makes them a root when parentID
// is nil. The cycle check runs on nodes read under the family lock, so two
// concurrent moves cannot together form a cycle. A refused move writes
// nothing.
func (s *FamilyTreeService) Reparent(ctx context.Context, familyID, userID uuid.UUID, parentID *uuid.UUID) (*response_models.FamilyTreeSummary, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var summary *response_models.FamilyTreeSummary
	err := s.updateTree(ctx, familyID, func(state repositories.TreeState) (*repositories.TreeWrite, error) {
		memberAt, parentFound := -1, parentID == nil
		for i, n := range state.Nodes {
			if n.UserID == userID {
				memberAt = i
			}
			if parentID != nil && n.UserID == *parentID {
				parentFound = true
			}
		}
		if memberAt < 0 {
			return nil, notFoundf("user %s is not a member of this family", userID)
		}
		if !parentFound {
			return nil, validationf("parent must be a member of the family")
		}

		state.Nodes[memberAt].ParentID = parentID
		f, err := buildForest(state.Nodes)
		if err != nil {
			return nil, err
		}
		var w *repositories.TreeWrite
		w, summary = treeWrite(state, f, &repositories.ParentChange{UserID: userID, ParentID: parentID})
		return w, nil
	})
	if err != nil {
		if errors.Is(err, utils.ErrCyclicRelationship) {
			s.log.Warn("reparent refused",
				zap.String("family_id", familyID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
		return nil, err
	}
	return summary, nil
}
