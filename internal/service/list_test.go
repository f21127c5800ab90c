package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
)

func setupListService(t *testing.T) *ListService {
	t.Helper()
	return NewListService(setupLists(t), testLogger())
}

func TestListService_ListFiltersAndSearches(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()

	writeListFile(t, svc.lists, "normal_list.json", `{"users":[{"user_id":"Alice","tag":"ok"}]}`)
	writeListFile(t, svc.lists, "yellow_list.json", `{"users":[{"user_id":"bob","tag":"Spam ALICE fan"},{"user_id":"carol","tag":"bot"}]}`)
	writeListFile(t, svc.lists, "black_list.json", `{"users":[{"user_id":"dave","tag":"scam"}]}`)

	page, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	page, err = svc.List(ctx, ListQuery{Tier: "yellow"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.TierWarning, page.Items[0].Tier)

	page, err = svc.List(ctx, ListQuery{Search: "alice"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2, "matches username and tag, case-insensitively")
	assert.Equal(t, "Alice", page.Items[0].Username)
	assert.Equal(t, "bob", page.Items[1].Username)

	_, err = svc.List(ctx, ListQuery{Tier: "purple"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListService_ListPagination(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()

	entries := make([]domain.ListEntry, 45)
	for i := range entries {
		entries[i] = domain.ListEntry{UserID: fmt.Sprintf("user%02d", i), Tag: "t"}
	}
	require.NoError(t, svc.lists.ReplaceAll(ctx, domain.TierNormal, entries))

	page, err := svc.List(ctx, ListQuery{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "user40", page.Items[0].Username)

	page, err = svc.List(ctx, ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.List(ctx, ListQuery{PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.PageSize)
}

func TestListService_ListFailsClosed(t *testing.T) {
	svc := setupListService(t)
	writeListFile(t, svc.lists, "yellow_list.json", `{"users":[{"user_id":"张三","tag":"x"}]}`)

	page, err := svc.List(context.Background(), ListQuery{})
	assert.Nil(t, page)
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	violations, ok := domainErr.Details.(domain.Violations)
	require.True(t, ok)
	require.Len(t, violations["yellow"], 1)
	assert.Equal(t, "张三", violations["yellow"][0].UserID)
}

func TestListService_Add(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()

	created, err := svc.Add(ctx, AddRequest{Username: " alice ", Tier: "warning", Tag: "spam"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Add(ctx, AddRequest{Username: "alice", Tier: "yellow", Tag: "bot"})
	require.NoError(t, err)
	assert.False(t, created)

	doc, err := svc.lists.ReadTier(ctx, domain.TierWarning)
	require.NoError(t, err)
	assert.Equal(t, []domain.ListEntry{{UserID: "alice", Tag: "bot"}}, doc.Users)

	// Listing in a second tier is allowed.
	_, err = svc.Add(ctx, AddRequest{Username: "alice", Tier: "danger", Tag: "scam"})
	require.NoError(t, err)
}

func TestListService_TagsAreUnbounded(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	long := strings.Repeat("spam ", 400)

	_, err := svc.Add(ctx, AddRequest{Username: "alice", Tier: "normal", Tag: long})
	require.NoError(t, err)
	require.NoError(t, svc.EditTag(ctx, "normal", "alice", long+"!"))

	doc, err := svc.lists.ReadTier(ctx, domain.TierNormal)
	require.NoError(t, err)
	assert.Equal(t, long+"!", doc.Users[0].Tag)
}

func TestListService_AddRejectsInvalid(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()

	for _, req := range []AddRequest{
		{Username: "用户", Tier: "normal"},
		{Username: "   ", Tier: "normal"},
		{Username: "alice", Tier: "purple"},
		{Username: "alice"},
	} {
		_, err := svc.Add(ctx, req)
		assert.ErrorIs(t, err, domainerrors.ErrValidation, "%+v", req)
	}
	assert.False(t, svc.lists.TierExists(domain.TierNormal), "nothing written")
}

func TestListService_EditAndDelete(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	writeListFile(t, svc.lists, "black_list.json", `{"users":[{"user_id":"a","tag":"1"},{"user_id":"b","tag":"2"}]}`)

	require.NoError(t, svc.EditTag(ctx, "danger", "a", "updated"))
	err := svc.EditTag(ctx, "danger", "zed", "x")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "black", "b"))
	err = svc.Delete(ctx, "black", "b")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	doc, err := svc.lists.ReadTier(ctx, domain.TierDanger)
	require.NoError(t, err)
	assert.Equal(t, []domain.ListEntry{{UserID: "a", Tag: "updated"}}, doc.Users)
}

func TestListService_BatchDelete(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	writeListFile(t, svc.lists, "normal_list.json", `{"users":[{"user_id":"a","tag":""},{"user_id":"b","tag":""},{"user_id":"c","tag":""}]}`)

	removed, err := svc.BatchDelete(ctx, "normal", []string{"a", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = svc.BatchDelete(ctx, "normal", nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestListService_ExportAll(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	writeListFile(t, svc.lists, "yellow_list.json", `{"users":[{"user_id":"bob","tag":"spam"}]}`)

	out, err := svc.Export(ctx, "all")
	require.NoError(t, err)
	all, ok := out.(map[string]domain.ListDocument)
	require.True(t, ok)
	assert.Len(t, all, 3)
	assert.Equal(t, "bob", all["warning"].Users[0].UserID)
	assert.Empty(t, all["normal"].Users)

	out, err = svc.Export(ctx, "warning")
	require.NoError(t, err)
	doc, ok := out.(domain.ListDocument)
	require.True(t, ok)
	assert.Len(t, doc.Users, 1)
}

func TestListService_Import(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()

	n, err := svc.Import(ctx, "danger", []byte(`{"users":[{"user_id":"x","tag":"1"},{"user_id":"y","tag":"2"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, err := svc.lists.ReadTier(ctx, domain.TierDanger)
	require.NoError(t, err)
	assert.Len(t, doc.Users, 2)
}

func TestListService_ImportRejectsWithoutWriting(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	original := `{"users":[{"user_id":"keep","tag":""}]}`
	writeListFile(t, svc.lists, "normal_list.json", original)

	_, err := svc.Import(ctx, "normal", []byte(`{"people":[]}`))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Import(ctx, "normal", []byte(`{"users":[{"user_id":"李四","tag":""}]}`))
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, []domain.ListEntry{{UserID: "李四", Tag: ""}}, domainErr.Details.(domain.Violations)["normal"])

	assert.Equal(t, original, readListFile(t, svc.lists, "normal_list.json"))
}

func TestListService_Revalidate(t *testing.T) {
	svc := setupListService(t)
	ctx := context.Background()
	writeListFile(t, svc.lists, "yellow_list.json", `{"users":[{"user_id":"ok","tag":""},{"user_id":"坏人","tag":""}]}`)

	bad, err := svc.Revalidate(ctx, svc.lists.Path(domain.TierWarning))
	require.NoError(t, err)
	assert.Equal(t, []domain.ListEntry{{UserID: "坏人", Tag: ""}}, bad)

	writeListFile(t, svc.lists, "black_list.json", `not json`)
	_, err = svc.Revalidate(ctx, svc.lists.Path(domain.TierDanger))
	assert.ErrorIs(t, err, domainerrors.ErrStoreCorrupted)

	bad, err = svc.Revalidate(ctx, "/elsewhere/readme.md")
	require.NoError(t, err)
	assert.Nil(t, bad)
}
