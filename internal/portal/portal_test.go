package portal

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/export"
	"github.com/celerix-dev/celerix-compliance/internal/seed"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
	"github.com/celerix-dev/celerix-compliance/pkg/schema"
)

var testNow = time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	portal *Portal
	audit  *engine.MemStore[schema.AuditEntry]
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	data, err := seed.Default()
	require.NoError(t, err)

	content, err := engine.NewMemStore(DatasetContent, data.Content, nil)
	require.NoError(t, err)
	checklist, err := engine.NewMemStore(DatasetChecklist, data.Checklist, nil)
	require.NoError(t, err)
	audit, err := engine.NewMemStore(DatasetAudit, data.Audit, nil)
	require.NoError(t, err)

	p := New(Stores{Content: content, Checklist: checklist, Audit: audit}, data.Templates, Options{
		Now: func() time.Time { return testNow },
	})
	return fixture{portal: p, audit: audit}
}

func (f fixture) auditActions(action string) []schema.AuditEntry {
	var out []schema.AuditEntry
	for _, e := range f.audit.List() {
		if e.Action == action && e.Actor == alice.Name {
			out = append(out, e)
		}
	}
	return out
}

func contentIDs(items []schema.ContentItem) []string { return ContentSchema.IDs(items) }

var alice = Actor{Name: "alice", IP: "10.0.0.7"}

func TestPortal_Datasets(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"audit", "checklist", "content"}, f.portal.Datasets())

	d, err := f.portal.Dataset("checklist")
	require.NoError(t, err)
	assert.Equal(t, "checklist", d.Name())

	_, err = f.portal.Dataset("users")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestScreen_DefaultView(t *testing.T) {
	f := newFixture(t)
	v := f.portal.Content.View()

	assert.Equal(t, []string{"cnt-0003", "cnt-0005", "cnt-0001", "cnt-0004", "cnt-0002", "cnt-0006"}, contentIDs(v.Items))
	assert.Equal(t, query.SortState{Field: "updatedAt", Dir: query.Desc}, v.Sort)
	assert.Equal(t, 1, v.Page.Page)
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, 6, v.Stats.Total)
	assert.Equal(t, 3, v.Stats.Matching)
	assert.Equal(t, query.Tally{Total: 3, Matching: 2}, v.Stats.Groups["regulator"]["Central Bank"])
	assert.NotNil(t, v.Selected)
	assert.Empty(t, v.Selected)
}

func TestScreen_FilterAndSortResetPage(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content

	s.SetPageSize(2)
	require.NoError(t, s.Navigate("next", 0))
	assert.Equal(t, 2, s.View().Page.Page)

	s.SetQuery(query.Query{Search: "guidelines"})
	v := s.View()
	assert.Equal(t, 1, v.Page.Page)
	assert.Equal(t, []string{"cnt-0002", "cnt-0006"}, contentIDs(v.Items))

	s.SetQuery(query.Query{})
	require.NoError(t, s.Navigate("last", 0))
	assert.Equal(t, 3, s.View().Page.Page)

	state := s.SortBy("title")
	assert.Equal(t, query.SortState{Field: "title", Dir: query.Desc}, state)
	assert.Equal(t, 1, s.View().Page.Page)

	state = s.SortBy("title")
	assert.Equal(t, query.Asc, state.Dir)
	v = s.View()
	assert.Equal(t, []string{"cnt-0002", "cnt-0001"}, contentIDs(v.Items))
}

func TestScreen_NavigateStopsAtBoundaries(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content
	s.SetPageSize(4)

	require.NoError(t, s.Navigate("prev", 0))
	assert.Equal(t, 1, s.View().Page.Page)

	require.NoError(t, s.Navigate("next", 0))
	require.NoError(t, s.Navigate("next", 0))
	assert.Equal(t, 2, s.View().Page.Page)

	require.NoError(t, s.Navigate("goto", 99))
	assert.Equal(t, 2, s.View().Page.Page)

	require.NoError(t, s.Navigate("first", 0))
	assert.Equal(t, 1, s.View().Page.Page)

	assert.ErrorIs(t, s.Navigate("sideways", 0), ErrInvalidAction)
}

func TestScreen_RunIsStateless(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Checklist

	res := s.Run(Request{
		Query: query.Query{Flags: map[string]bool{"completed": false}},
		Sort:  query.SortState{Field: "riskLevel", Dir: query.Desc},
		Size:  2,
	})
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, []string{"chk-0002", "chk-0003"}, ChecklistSchema.IDs(res.Items))
	assert.Equal(t, 1, res.Stats.Overdue)

	v := s.View()
	assert.Equal(t, 6, v.Total, "view state untouched")
}

func TestScreen_SelectAllCoversFilteredSequence(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content
	s.SetPageSize(1)
	s.SetQuery(query.Query{Equals: map[string]string{"regulator": "Central Bank"}})

	assert.Equal(t, 3, s.SelectAll())
	assert.ElementsMatch(t, []string{"cnt-0001", "cnt-0004", "cnt-0006"}, s.Selected())

	s.SetQuery(query.Query{})
	assert.Len(t, s.Selected(), 3, "selection survives re-filtering")

	s.ClearSelection()
	assert.Empty(t, s.Selected())
}

func TestScreen_Toggle(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content

	on, err := s.Toggle("cnt-0002")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = s.Toggle("cnt-0002")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = s.Toggle("cnt-9999")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestScreen_DeleteSelected(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content

	_, err := s.DeleteSelected(alice)
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, _ = s.Toggle("cnt-0003")
	_, _ = s.Toggle("cnt-0005")
	deleted, err := s.DeleteSelected(alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"cnt-0003", "cnt-0005"}, deleted)
	assert.Equal(t, 4, s.Repository().Len())
	assert.Empty(t, s.Selected())

	entries := f.auditActions("delete")
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Actor)
	assert.Equal(t, "10.0.0.7", entries[0].IPAddress)
	assert.Equal(t, "content", entries[0].ResourceType)
	assert.Equal(t, testNow, entries[0].Timestamp)
}

func TestScreen_RemovePrunesSelection(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content
	_, _ = s.Toggle("cnt-0001")
	_, _ = s.Toggle("cnt-0002")

	require.NoError(t, s.Remove(alice, "cnt-0001"))
	assert.Equal(t, []string{"cnt-0002"}, s.Selected())
	assert.ErrorIs(t, s.Remove(alice, "cnt-0001"), engine.ErrNotFound)
	assert.Len(t, f.auditActions("delete"), 1)
}

func TestScreen_ExportSelected(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Content

	var buf bytes.Buffer
	assert.ErrorIs(t, s.ExportSelected(&buf, export.CSV, alice), ErrEmptySelection)
	assert.Zero(t, buf.Len())

	_, _ = s.Toggle("cnt-0004")
	_, _ = s.Toggle("cnt-0001")
	assert.ErrorIs(t, s.ExportSelected(&buf, "pdf", alice), export.ErrUnknownFormat)
	assert.Len(t, s.Selected(), 2, "failed export keeps the selection")

	require.NoError(t, s.ExportSelected(&buf, export.JSON, alice))
	var got []schema.ContentItem
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"cnt-0001", "cnt-0004"}, contentIDs(got), "store order")
	assert.Empty(t, s.Selected())
	assert.Len(t, f.auditActions("export"), 2)
}

// listHook runs a callback on every List call of the wrapped repository.
type listHook[T schema.Record] struct {
	engine.Repository[T]
	calls  int
	onList func(call int)
}

func (r *listHook[T]) List() []T {
	r.calls++
	if r.onList != nil {
		r.onList(r.calls)
	}
	return r.Repository.List()
}

func TestScreen_ViewKeepsConcurrentPageReset(t *testing.T) {
	data, err := seed.Default()
	require.NoError(t, err)
	store, err := engine.NewMemStore(DatasetContent, data.Content, nil)
	require.NoError(t, err)

	repo := &listHook[schema.ContentItem]{Repository: store}
	s := NewContentScreen(repo, nil, Options{PageSize: 2, Now: func() time.Time { return testNow }})
	require.NoError(t, s.Navigate("goto", 3))

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.onList = func(int) {
		repo.onList = nil
		close(entered)
		<-release
	}

	done := make(chan View[schema.ContentItem])
	go func() { done <- s.View() }()

	<-entered
	s.SortBy("title")
	close(release)
	assert.Equal(t, 3, (<-done).Page.Page, "in-flight view answers its own request")

	v := s.View()
	assert.Equal(t, 1, v.Page.Page, "sort change resets the page")
	assert.Equal(t, "title", v.Sort.Field)
}

func TestScreen_ExportSelectedAuditsExportedRecords(t *testing.T) {
	f := newFixture(t)
	content, err := engine.NewMemStore(DatasetContent, f.portal.Content.Repository().List(), nil)
	require.NoError(t, err)

	repo := &listHook[schema.ContentItem]{Repository: content}
	logger := NewAuditLogger(f.audit, func() time.Time { return testNow })
	s := NewContentScreen(repo, logger, Options{Now: func() time.Time { return testNow }})
	_, _ = s.Toggle("cnt-0001")
	_, _ = s.Toggle("cnt-0004")

	repo.onList = func(call int) {
		if call > 1 {
			_, _ = s.Toggle("cnt-0002")
		}
	}

	var buf bytes.Buffer
	require.NoError(t, s.ExportSelected(&buf, export.JSON, alice))
	var got []schema.ContentItem
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	var audited []string
	for _, e := range f.auditActions("export") {
		audited = append(audited, e.ResourceID)
	}
	assert.Equal(t, contentIDs(got), audited)
	assert.Empty(t, s.Selected())
}

func TestScreen_ExportFilteredSequence(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	err := f.portal.Content.Export(&buf, export.CSV, Request{
		Query: query.Query{Equals: map[string]string{"status": "draft"}},
		Sort:  query.SortState{Field: "title", Dir: query.Asc},
		Size:  1,
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus every match, not one page")
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "cnt-0003", rows[1][0])
	assert.Equal(t, "cnt-0005", rows[2][0])
}

func TestContent_CreateUpdatePublishArchive(t *testing.T) {
	f := newFixture(t)
	svc := f.portal.Content

	_, err := svc.Create(alice, schema.ContentItem{Title: " ", Category: "notice"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	item, err := svc.Create(alice, schema.ContentItem{
		Title:    "Climate Risk Disclosure",
		Category: "guideline",
		Content:  "Banks shall disclose climate exposures.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, schema.StatusDraft, item.Status)
	assert.Equal(t, "alice", item.Author)
	assert.Equal(t, testNow, item.CreatedAt)
	assert.True(t, item.PublishedAt.IsZero())

	item.Content = "Banks shall disclose climate exposures annually."
	updated, err := svc.Update(alice, item.ID, item)
	require.NoError(t, err)
	assert.Equal(t, item.Content, updated.Content)
	updates := f.auditActions("update")
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].Details, "@@")
	assert.Contains(t, updates[0].Details, "annually")

	_, err = svc.Update(alice, "cnt-9999", item)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	published, err := svc.Publish(alice, item.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusPublished, published.Status)
	assert.Equal(t, testNow, published.PublishedAt)

	archived, err := svc.Archive(alice, item.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusArchived, archived.Status)

	assert.Len(t, f.auditActions("create"), 1)
	assert.Len(t, f.auditActions("publish"), 1)
	assert.Len(t, f.auditActions("archive"), 1)
}

func TestContentPatch(t *testing.T) {
	assert.Empty(t, ContentPatch("same", "same"))
	assert.NotEmpty(t, ContentPatch("capital ratio 8", "capital ratio 12"))
}

func TestContent_PublishSelected(t *testing.T) {
	f := newFixture(t)
	svc := f.portal.Content
	_, _ = svc.Toggle("cnt-0003")
	_, _ = svc.Toggle("cnt-0005")

	ids, err := svc.PublishSelected(alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"cnt-0003", "cnt-0005"}, ids)

	for _, id := range ids {
		item, err := svc.Get(id)
		require.NoError(t, err)
		assert.Equal(t, schema.StatusPublished, item.Status)
		assert.Equal(t, testNow, item.PublishedAt)
	}
	assert.Equal(t, 5, svc.Summarize(query.Query{}).Matching)
}

func TestChecklist_Generate(t *testing.T) {
	f := newFixture(t)
	svc := f.portal.Checklist

	created, err := svc.Generate(alice, GenerateRequest{Regulators: []string{"Central Bank"}})
	require.NoError(t, err)
	require.Len(t, created, 2, "liquidity already has an open item")
	assert.Equal(t, "tpl-capital", created[0].TemplateID)
	assert.Equal(t, testNow.Add(30*24*time.Hour), created[0].DueDate)
	assert.Equal(t, "tpl-safeguarding", created[1].TemplateID)
	assert.Equal(t, 8, svc.Repository().Len())
	assert.Len(t, f.auditActions("generate"), 2)

	again, err := svc.Generate(alice, GenerateRequest{Regulators: []string{"Central Bank"}})
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = svc.Generate(alice, GenerateRequest{Regulators: []string{"Nobody"}})
	assert.ErrorIs(t, err, ErrNoTemplates)

	created, err = svc.Generate(alice, GenerateRequest{
		Regulators: []string{"Securities Commission", "Insurance Commission"},
		Categories: []string{"conduct", "solvency"},
	})
	require.NoError(t, err)
	var tpls []string
	for _, c := range created {
		tpls = append(tpls, c.TemplateID)
	}
	assert.Equal(t, []string{"tpl-solvency", "tpl-disclosure"}, tpls)
}

func TestChecklist_SetCompleted(t *testing.T) {
	f := newFixture(t)
	svc := f.portal.Checklist

	item, err := svc.SetCompleted(alice, "chk-0002", true)
	require.NoError(t, err)
	assert.True(t, item.Completed)
	assert.Equal(t, testNow, item.CompletedAt)

	item, err = svc.SetCompleted(alice, "chk-0002", false)
	require.NoError(t, err)
	assert.False(t, item.Completed)
	assert.True(t, item.CompletedAt.IsZero())

	_, err = svc.SetCompleted(alice, "chk-9999", true)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	assert.Len(t, f.auditActions("complete"), 1)
	assert.Len(t, svc.Templates(), 8)
}

func TestDashboard_Summary(t *testing.T) {
	f := newFixture(t)
	s := f.portal.Dashboard.Summary()

	assert.Equal(t, 6, s.Content.Total)
	assert.Equal(t, 3, s.Content.Matching)
	assert.Equal(t, 6, s.Checklist.Total)
	assert.Equal(t, 2, s.Checklist.Matching)
	assert.Equal(t, 1, s.Checklist.Overdue)
	assert.InDelta(t, 33.33, s.CompletionRate, 0.01)
	assert.Equal(t, 8, s.Audit.Total)
	assert.Equal(t, testNow, s.LastUpdated)
	assert.Contains(t, s.Checklist.Groups, "riskLevel")
}

func TestDashboard_Run(t *testing.T) {
	ticks := make(chan struct{}, 8)
	clock := testNow
	d := &Dashboard{now: func() time.Time {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return clock
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Millisecond)
		close(done)
	}()
	<-ticks
	cancel()
	<-done

	d.mu.RLock()
	defer d.mu.RUnlock()
	assert.Equal(t, testNow, d.lastUpdated)
}

func TestOpen_SeedsOnceThenReloads(t *testing.T) {
	data, err := seed.Default()
	require.NoError(t, err)
	p, err := engine.NewPersistence(t.TempDir())
	require.NoError(t, err)

	first, err := Open(p, data, Options{Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	require.NoError(t, first.Content.Remove(alice, "cnt-0001"))
	first.Wait()

	second, err := Open(p, data, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, second.Content.Repository().Len(), "snapshot wins over seed")
	assert.Equal(t, 9, second.Audit.Repository().Len())
	_, err = second.Content.Get("cnt-0001")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestOpen_InMemory(t *testing.T) {
	data, err := seed.Default()
	require.NoError(t, err)
	p, err := Open(nil, data, Options{})
	require.NoError(t, err)
	p.Wait()
	assert.Equal(t, 6, p.Checklist.Repository().Len())
}
