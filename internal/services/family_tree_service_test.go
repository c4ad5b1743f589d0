package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/pkg/utils"
)

func node(user uuid.UUID, parent *uuid.UUID) dbm.FamilyNode {
	return dbm.FamilyNode{UserID: user, ParentID: parent}
}

func TestBuildForestAssignsGenerations(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	f, err := buildForest([]dbm.FamilyNode{
		node(c, &b),
		node(a, nil),
		node(b, &a),
		node(d, nil),
	})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{a, d}, f.roots)
	assert.Equal(t, map[uuid.UUID]int{a: 0, b: 1, c: 2, d: 0}, f.generations)
	assert.Equal(t, 3, f.totalGenerations())
	assert.Equal(t, []uuid.UUID{b}, f.children[a])
}

func TestBuildForestOutsideParentIsRoot(t *testing.T) {
	a, stranger := uuid.New(), uuid.New()

	f, err := buildForest([]dbm.FamilyNode{node(a, &stranger)})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, f.roots)
	assert.Equal(t, 1, f.totalGenerations())
}

func TestBuildForestEmpty(t *testing.T) {
	f, err := buildForest(nil)
	require.NoError(t, err)
	assert.Empty(t, f.roots)
	assert.Equal(t, 0, f.totalGenerations())
}

func TestBuildForestDetectsCycles(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	_, err := buildForest([]dbm.FamilyNode{node(a, &c), node(b, &a), node(c, &b)})
	assert.ErrorIs(t, err, utils.ErrCyclicRelationship)

	_, err = buildForest([]dbm.FamilyNode{node(a, &a)})
	assert.ErrorIs(t, err, utils.ErrCyclicRelationship)

	// A root with a cycle hanging off an unrelated branch is still rejected.
	root := uuid.New()
	_, err = buildForest([]dbm.FamilyNode{node(root, nil), node(a, &b), node(b, &a)})
	assert.ErrorIs(t, err, utils.ErrCyclicRelationship)
}

// chain builds A -> B -> C in a fresh family.
func chain(t *testing.T, f *fixture) (*dbm.Family, *dbm.User, *dbm.User, *dbm.User) {
	t.Helper()
	ctx := context.Background()
	fam := f.family(t, "Kunnath")
	a := f.user(t, "Appu", dbm.RoleUser)
	b := f.user(t, "Balu", dbm.RoleUser)
	c := f.user(t, "Chinnu", dbm.RoleUser)

	_, err := f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: a.ID.String()})
	require.NoError(t, err)
	_, err = f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{
		UserID: b.ID.String(), ParentID: a.ID.String(), RelationshipType: "son",
	})
	require.NoError(t, err)
	_, err = f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{
		UserID: c.ID.String(), ParentID: b.ID.String(), RelationshipType: "daughter",
	})
	require.NoError(t, err)
	return fam, a, b, c
}

func TestRebuildTreePersistsGenerations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, b, c := chain(t, f)

	summary, err := f.tree.RebuildTree(ctx, fam.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID.String()}, summary.RootMemberIDs)
	assert.Equal(t, 3, summary.TotalMembers)
	assert.Equal(t, 3, summary.TotalGenerations)
	assert.Equal(t, []string{c.ID.String()}, summary.Structure.Children[b.ID.String()])

	for want, u := range []*dbm.User{a, b, c} {
		n, err := f.familyRepo.FindNodeByUser(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, want, n.Generation)
	}

	stored, err := f.familyRepo.FindTree(ctx, fam.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.TotalGenerations)
	assert.Len(t, stored.Structure.Data().Nodes, 3)

	member, err := f.userRepo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, member.FamilyID)
	assert.Equal(t, fam.ID, *member.FamilyID)
}

func TestReparentRejectsCycleWithoutWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, _, c := chain(t, f)

	_, err := f.tree.Reparent(ctx, fam.ID, a.ID, &c.ID)
	require.ErrorIs(t, err, utils.ErrCyclicRelationship)

	n, err := f.familyRepo.FindNodeByUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, n.ParentID)
	assert.Equal(t, 0, n.Generation)

	stored, err := f.familyRepo.FindTree(ctx, fam.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalGenerations)
}

func TestReparentMovesSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, _, c := chain(t, f)

	summary, err := f.tree.Reparent(ctx, fam.ID, c.ID, &a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalGenerations)

	n, err := f.familyRepo.FindNodeByUser(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, n.ParentID)
	assert.Equal(t, a.ID, *n.ParentID)
	assert.Equal(t, 1, n.Generation)

	summary, err = f.tree.Reparent(ctx, fam.ID, c.ID, nil)
	require.NoError(t, err)
	assert.Len(t, summary.RootMemberIDs, 2)
}

func TestConcurrentReparentsCannotFormCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		fam := f.family(t, fmt.Sprintf("Race %d", round))
		x := f.user(t, "Xavier", dbm.RoleUser)
		y := f.user(t, "Yamuna", dbm.RoleUser)
		for _, u := range []*dbm.User{x, y} {
			_, err := f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: u.ID.String()})
			require.NoError(t, err)
		}

		errs := make([]error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.tree.Reparent(ctx, fam.ID, x.ID, &y.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.tree.Reparent(ctx, fam.ID, y.ID, &x.ID)
		}()
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, utils.ErrCyclicRelationship)
				failed++
			}
		}
		assert.Equal(t, 1, failed, "exactly one move must win")

		nodes, err := f.familyRepo.ListNodes(ctx, fam.ID)
		require.NoError(t, err)
		_, err = buildForest(nodes)
		assert.NoError(t, err, "stored parents must stay acyclic")
	}
}

func TestReparentUnknownFamily(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Lone", dbm.RoleUser)

	_, err := f.tree.Reparent(context.Background(), uuid.New(), a.ID, nil)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestReparentValidatesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, _, _ := chain(t, f)
	outsider := f.user(t, "Dev", dbm.RoleUser)

	_, err := f.tree.Reparent(ctx, fam.ID, outsider.ID, &a.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.tree.Reparent(ctx, fam.ID, a.ID, &outsider.ID)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestRemoveMemberPromotesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, b, c := chain(t, f)

	summary, err := f.tree.RemoveMember(ctx, fam.ID, b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID.String(), c.ID.String()}, summary.RootMemberIDs)
	assert.Equal(t, 2, summary.TotalMembers)
	assert.Equal(t, 1, summary.TotalGenerations)

	removed, err := f.userRepo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, removed.FamilyID)

	_, err = f.tree.RemoveMember(ctx, fam.ID, b.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestAddMemberMovesBetweenFamilies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, a, b, _ := chain(t, f)
	second := f.family(t, "Puthenveed")

	_, err := f.tree.AddMember(ctx, first.ID, request_models.AddMemberRequest{UserID: a.ID.String()})
	assert.ErrorIs(t, err, utils.ErrConflict)

	summary, err := f.tree.AddMember(ctx, second.ID, request_models.AddMemberRequest{UserID: b.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalMembers)

	old, err := f.familyRepo.FindTree(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, old.TotalMembers)
	assert.Len(t, old.RootMemberIDs, 2)
}

func TestAddMemberValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam := f.family(t, "Edathil")
	u := f.user(t, "Eby", dbm.RoleUser)

	_, err := f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: "nope"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: u.ID.String(), RelationshipType: "pet"})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.tree.AddMember(ctx, fam.ID, request_models.AddMemberRequest{UserID: u.ID.String(), ParentID: u.ID.String()})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.tree.AddMember(ctx, uuid.New(), request_models.AddMemberRequest{UserID: u.ID.String()})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestGetTreeAndPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fam, a, b, c := chain(t, f)

	view, err := f.tree.GetTree(ctx, fam.ID)
	require.NoError(t, err)
	require.Len(t, view.Roots, 1)
	assert.Equal(t, "Appu Tester", view.Roots[0].Name)
	require.Len(t, view.Roots[0].Children, 1)
	assert.Equal(t, "son", view.Roots[0].Children[0].RelationshipType)
	require.Len(t, view.Roots[0].Children[0].Children, 1)
	assert.Equal(t, 2, view.Roots[0].Children[0].Children[0].Generation)

	path, err := f.tree.MemberPath(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, a.ID.String(), path[0].UserID)
	assert.Equal(t, b.ID.String(), path[1].UserID)
	assert.Equal(t, c.ID.String(), path[2].UserID)

	gen1, err := f.tree.GenerationMembers(ctx, fam.ID, 1)
	require.NoError(t, err)
	require.Len(t, gen1, 1)
	assert.Equal(t, b.ID, gen1[0].ID)

	loner := f.user(t, "Loner", dbm.RoleUser)
	path, err = f.tree.MemberPath(ctx, loner.ID)
	require.NoError(t, err)
	assert.Len(t, path, 1)
}
