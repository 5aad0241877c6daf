package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/crm-timeline/internal/directory"
	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
)

// countingUsers resolves users and counts backend calls per id.
type countingUsers struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	slow  time.Duration
}

func (u *countingUsers) Get(_ context.Context, id string, includeInactive bool) (*model.UserSummary, error) {
	u.mu.Lock()
	if u.calls == nil {
		u.calls = make(map[string]int)
	}
	u.calls[id]++
	failed := u.fail[id]
	u.mu.Unlock()

	if u.slow > 0 {
		time.Sleep(u.slow)
	}
	if failed {
		return nil, errors.New("lookup failed")
	}
	return &model.UserSummary{ID: id, FullName: "User " + id}, nil
}

// countingAccounts lists tenant email accounts and counts calls.
type countingAccounts struct {
	mu        sync.Mutex
	calls     int
	addresses []string
	err       error
}

func (a *countingAccounts) List(context.Context) ([]directory.EmailAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	accounts := make([]directory.EmailAccount, 0, len(a.addresses))
	for _, addr := range a.addresses {
		accounts = append(accounts, directory.EmailAccount{EmailAddress: addr})
	}
	return accounts, nil
}

// countingContacts resolves contact targets and counts backend calls.
type countingContacts struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingContacts) ResolveTarget(_ context.Context, kind model.TargetKind, id string) (*model.Target, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[id]++
	if kind != model.TargetContact {
		return nil, errors.New("unexpected kind")
	}
	return &model.Target{Kind: kind, ID: id, Name: "Contact " + id}, nil
}

// stubSearch answers every sub-note query with the same hits.
type stubSearch struct {
	hits []string
	got  search.Params
}

func (s *stubSearch) Query(_ context.Context, params search.Params) (*search.Result, error) {
	s.got = params
	result := &search.Result{Total: len(s.hits)}
	for _, h := range s.hits {
		result.Hits = append(result.Hits, json.RawMessage(h))
	}
	return result, nil
}

// stubMessages serves one raw MIME source for every message id.
type stubMessages struct {
	raw []byte
	err error
}

func (m *stubMessages) Source(context.Context, string) ([]byte, error) {
	return m.raw, m.err
}

// syncApply applies mutations immediately, the way the aggregator
// does for a still-current generation.
func syncApply(mutate func()) { mutate() }

func newTestPass(e *Enricher) *pass {
	return &pass{
		e:            e,
		ctx:          context.Background(),
		userCache:    make(map[string]*userEntry),
		contactCache: make(map[string]*contactEntry),
	}
}

func TestResolveUserMemoizedPerPass(t *testing.T) {
	users := &countingUsers{}
	e := New(users, nil, nil, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	first := p.resolveUser("u1")
	second := p.resolveUser("u1")

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, users.calls["u1"])
}

func TestResolveUserConcurrentCallersShareOneLookup(t *testing.T) {
	users := &countingUsers{slow: 10 * time.Millisecond}
	e := New(users, nil, nil, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	var wg sync.WaitGroup
	results := make([]*model.UserSummary, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.resolveUser("u1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, users.calls["u1"])
	for _, user := range results {
		require.NotNil(t, user)
		assert.Equal(t, "User u1", user.FullName)
	}
}

func TestResolveUserFailureCachedAsMiss(t *testing.T) {
	users := &countingUsers{fail: map[string]bool{"gone": true}}
	e := New(users, nil, nil, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	assert.Nil(t, p.resolveUser("gone"))
	assert.Nil(t, p.resolveUser("gone"))
	assert.Equal(t, 1, users.calls["gone"])
}

func TestEnrichResolvesAuthorAndAssignee(t *testing.T) {
	users := &countingUsers{}
	e := New(users, nil, nil, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	rec := &model.TimelineRecord{
		Kind: model.KindCase,
		ID:   "c1",
		Case: &model.CasePayload{CreatorID: "u1", AssigneeID: "u2"},
	}
	p.enrich(rec, syncApply)

	require.NotNil(t, rec.Enrichment.Author)
	assert.Equal(t, "User u1", rec.Enrichment.Author.FullName)
	require.NotNil(t, rec.Enrichment.Assignee)
	assert.Equal(t, "User u2", rec.Enrichment.Assignee.FullName)
}

func TestAttachViaContactResolvesName(t *testing.T) {
	contacts := &countingContacts{}
	e := New(nil, contacts, nil, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	first := &model.TimelineRecord{
		Kind: model.KindNote,
		ID:   "n1",
		Note: &model.NotePayload{Content: "call", ViaID: "ct1", ViaKind: "contact"},
	}
	second := &model.TimelineRecord{
		Kind: model.KindNote,
		ID:   "n2",
		Note: &model.NotePayload{Content: "follow-up", ViaID: "ct1", ViaKind: "contact"},
	}
	direct := &model.TimelineRecord{
		Kind: model.KindNote,
		ID:   "n3",
		Note: &model.NotePayload{Content: "direct"},
	}

	p.enrich(first, syncApply)
	p.enrich(second, syncApply)
	p.enrich(direct, syncApply)

	assert.Equal(t, "Contact ct1", first.Enrichment.ViaName)
	assert.Equal(t, "Contact ct1", second.Enrichment.ViaName)
	assert.Empty(t, direct.Enrichment.ViaName)
	assert.Equal(t, 1, contacts.calls["ct1"])
}

func TestAttachSubNotes(t *testing.T) {
	sc := &stubSearch{hits: []string{
		`{"id": "sn1", "content": "first", "date": "2024-03-10T10:00:00Z"}`,
		`{"id": "sn2", "content": "second", "date": "2024-03-09T10:00:00Z"}`,
	}}
	e := New(nil, nil, nil, nil, sc, 5, zerolog.Nop())
	p := newTestPass(e)

	rec := &model.TimelineRecord{
		Kind: model.KindDeal,
		ID:   "d1",
		Deal: &model.DealPayload{Name: "Renewal"},
	}
	p.enrich(rec, syncApply)

	assert.Equal(t, "note", sc.got.Type)
	assert.Equal(t, "gfk_content_type:deal AND gfk_object_id:d1", sc.got.FilterQuery)
	assert.Equal(t, 5, sc.got.Size)

	require.Len(t, rec.Enrichment.SubNotes, 2)
	assert.Equal(t, "sn1", rec.Enrichment.SubNotes[0].ID)
	assert.Equal(t, "first", rec.Enrichment.SubNotes[0].Note.Content)
}

func TestFlagOutboundFetchesAccountsOnce(t *testing.T) {
	accounts := &countingAccounts{addresses: []string{"Sales@Tenant.test"}}
	e := New(nil, nil, accounts, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	outbound := &model.TimelineRecord{
		Kind:  model.KindEmail,
		ID:    "e1",
		Email: &model.EmailPayload{SenderEmail: "sales@tenant.test"},
	}
	inbound := &model.TimelineRecord{
		Kind:  model.KindEmail,
		ID:    "e2",
		Email: &model.EmailPayload{SenderEmail: "ada@acme.test"},
	}

	p.enrich(outbound, syncApply)
	p.enrich(inbound, syncApply)

	assert.True(t, outbound.Enrichment.IsOutbound)
	assert.False(t, inbound.Enrichment.IsOutbound)
	assert.Equal(t, 1, accounts.calls)
}

func TestFlagOutboundSwallowsAccountListFailure(t *testing.T) {
	accounts := &countingAccounts{err: errors.New("unavailable")}
	e := New(nil, nil, accounts, nil, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	rec := &model.TimelineRecord{
		Kind:  model.KindEmail,
		ID:    "e1",
		Email: &model.EmailPayload{SenderEmail: "sales@tenant.test"},
	}
	p.enrich(rec, syncApply)

	assert.False(t, rec.Enrichment.IsOutbound)
}

func TestAttachPreviewFromMessageSource(t *testing.T) {
	raw := "Subject: hi\r\n" +
		"From: ada@acme.test\r\n" +
		"To: sales@tenant.test\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See you at ten.\r\n"
	messages := &stubMessages{raw: []byte(raw)}
	e := New(nil, nil, nil, messages, nil, 5, zerolog.Nop())
	p := newTestPass(e)

	rec := &model.TimelineRecord{
		Kind:  model.KindEmail,
		ID:    "e1",
		Email: &model.EmailPayload{MessageID: "m1"},
	}
	p.enrich(rec, syncApply)

	assert.Equal(t, "See you at ten.", rec.Enrichment.Preview)
}

func TestRunWithoutCollaboratorsIsNoop(t *testing.T) {
	e := New(nil, nil, nil, nil, nil, 5, zerolog.Nop())

	rec := &model.TimelineRecord{
		Kind: model.KindNote,
		ID:   "n1",
		Note: &model.NotePayload{AuthorID: "u1"},
	}

	var mu sync.Mutex
	applied := 0
	e.Run(context.Background(), []*model.TimelineRecord{rec}, func(mutate func()) {
		mu.Lock()
		mutate()
		applied++
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, applied)
}
