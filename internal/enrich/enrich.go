// Package enrich attaches secondary display data to already-merged
// timeline records. Everything here is best-effort: enrichment runs
// after the merge barrier, failures are swallowed, and a record must
// render correctly with nothing but its fetch-time fields.
package enrich

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/crm-timeline/internal/directory"
	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source/note"
)

// Apply schedules a state mutation. The aggregator supplies an
// implementation that checks the captured load generation and drops
// the mutation when a newer load has superseded it.
type Apply func(mutate func())

// Enricher resolves users, contacts, sub-notes, and email metadata
// for timeline records.
type Enricher struct {
	users        directory.UserDirectory
	contacts     directory.TargetResolver
	accounts     directory.EmailAccounts
	messages     directory.MessageSource
	search       search.Client
	subNoteLimit int
	log          zerolog.Logger
}

// New creates an Enricher. Any of the collaborator interfaces may be
// nil, which disables the corresponding enrichment.
func New(
	users directory.UserDirectory,
	contacts directory.TargetResolver,
	accounts directory.EmailAccounts,
	messages directory.MessageSource,
	searchClient search.Client,
	subNoteLimit int,
	log zerolog.Logger,
) *Enricher {
	if subNoteLimit <= 0 {
		subNoteLimit = 10
	}
	return &Enricher{
		users:        users,
		contacts:     contacts,
		accounts:     accounts,
		messages:     messages,
		search:       searchClient,
		subNoteLimit: subNoteLimit,
		log:          log,
	}
}

// userEntry holds one memoized user lookup. The Once also acts as an
// in-flight guard: concurrent callers for the same id block on it
// instead of issuing duplicate lookups.
type userEntry struct {
	once sync.Once
	user *model.UserSummary
}

// contactEntry holds one memoized contact-name lookup.
type contactEntry struct {
	once sync.Once
	name string
}

// pass carries the per-load caches: user and contact lookups are
// memoized by id and the tenant's email account list is fetched at
// most once, no matter how many records reference them.
type pass struct {
	e   *Enricher
	ctx context.Context

	userMu    sync.Mutex
	userCache map[string]*userEntry

	contactMu    sync.Mutex
	contactCache map[string]*contactEntry

	accountsOnce sync.Once
	tenantAddrs  map[string]struct{}
}

// Run launches enrichment for every record and returns immediately.
// The merge result is never gated on enrichment; mutations land via
// apply whenever their lookups complete.
func (e *Enricher) Run(ctx context.Context, records []*model.TimelineRecord, apply Apply) {
	p := &pass{
		e:            e,
		ctx:          ctx,
		userCache:    make(map[string]*userEntry),
		contactCache: make(map[string]*contactEntry),
	}

	for _, rec := range records {
		go p.enrich(rec, apply)
	}
}

// enrich resolves all secondary data for one record.
func (p *pass) enrich(rec *model.TimelineRecord, apply Apply) {
	if id := rec.AuthorID(); id != "" {
		if user := p.resolveUser(id); user != nil {
			apply(func() { rec.Enrichment.Author = user })
		}
	}

	if id := rec.AssigneeID(); id != "" {
		if user := p.resolveUser(id); user != nil {
			apply(func() { rec.Enrichment.Assignee = user })
		}
	}

	switch rec.Kind {
	case model.KindNote:
		p.attachViaContact(rec, apply)
	case model.KindCase, model.KindDeal:
		p.attachSubNotes(rec, apply)
	case model.KindEmail:
		p.flagOutbound(rec, apply)
		p.attachPreview(rec, apply)
	}
}

// resolveUser memoizes UserDirectory lookups for the duration of one
// load pass; concurrent callers for the same id share a single
// lookup. Inactive users resolve too; a past author may have left
// the tenant.
func (p *pass) resolveUser(id string) *model.UserSummary {
	if p.e.users == nil {
		return nil
	}

	p.userMu.Lock()
	entry, ok := p.userCache[id]
	if !ok {
		entry = &userEntry{}
		p.userCache[id] = entry
	}
	p.userMu.Unlock()

	entry.once.Do(func() {
		user, err := p.e.users.Get(p.ctx, id, true)
		if err != nil {
			p.e.log.Debug().Err(err).Str("user_id", id).Msg("user enrichment failed")
			user = nil
		}
		entry.user = user
	})
	return entry.user
}

// attachViaContact resolves the display name of the contact a note
// reached an account timeline through.
func (p *pass) attachViaContact(rec *model.TimelineRecord, apply Apply) {
	if rec.Note == nil || rec.Note.ViaKind != "contact" || rec.Note.ViaID == "" {
		return
	}
	if name := p.resolveContactName(rec.Note.ViaID); name != "" {
		apply(func() { rec.Enrichment.ViaName = name })
	}
}

// resolveContactName memoizes contact-name lookups the same way
// resolveUser memoizes user lookups.
func (p *pass) resolveContactName(id string) string {
	if p.e.contacts == nil {
		return ""
	}

	p.contactMu.Lock()
	entry, ok := p.contactCache[id]
	if !ok {
		entry = &contactEntry{}
		p.contactCache[id] = entry
	}
	p.contactMu.Unlock()

	entry.once.Do(func() {
		target, err := p.e.contacts.ResolveTarget(p.ctx, model.TargetContact, id)
		if err != nil {
			p.e.log.Debug().Err(err).Str("contact_id", id).Msg("contact enrichment failed")
			return
		}
		entry.name = target.Name
	})
	return entry.name
}

// attachSubNotes fetches the newest notes logged against a case or
// deal and attaches them to the record.
func (p *pass) attachSubNotes(rec *model.TimelineRecord, apply Apply) {
	if p.e.search == nil {
		return
	}

	result, err := p.e.search.Query(p.ctx, search.Params{
		Type: "note",
		FilterQuery: search.And(
			search.Term("gfk_content_type", string(rec.Kind)),
			search.Term("gfk_object_id", rec.ID),
		),
		Size: p.e.subNoteLimit,
		Sort: "-date",
	})
	if err != nil {
		p.e.log.Debug().Err(err).Str("id", rec.ID).Msg("sub-note enrichment failed")
		return
	}

	subNotes := make([]*model.TimelineRecord, 0, len(result.Hits))
	for _, raw := range result.Hits {
		sub, err := note.Normalize(raw)
		if err != nil {
			continue
		}
		subNotes = append(subNotes, sub)
	}
	if len(subNotes) == 0 {
		return
	}

	apply(func() { rec.Enrichment.SubNotes = subNotes })
}

// flagOutbound marks an email as outbound when its sender address
// belongs to one of the tenant's own email accounts.
func (p *pass) flagOutbound(rec *model.TimelineRecord, apply Apply) {
	if p.e.accounts == nil || rec.Email == nil {
		return
	}

	p.accountsOnce.Do(func() {
		accounts, err := p.e.accounts.List(p.ctx)
		if err != nil {
			p.e.log.Debug().Err(err).Msg("email account enrichment failed")
			return
		}
		p.tenantAddrs = make(map[string]struct{}, len(accounts))
		for _, acc := range accounts {
			p.tenantAddrs[strings.ToLower(acc.EmailAddress)] = struct{}{}
		}
	})

	if p.tenantAddrs == nil {
		return
	}

	if _, ok := p.tenantAddrs[strings.ToLower(rec.Email.SenderEmail)]; ok {
		apply(func() { rec.Enrichment.IsOutbound = true })
	}
}

// attachPreview parses the message's raw MIME source into a
// plain-text preview and attachment metadata.
func (p *pass) attachPreview(rec *model.TimelineRecord, apply Apply) {
	if p.e.messages == nil || rec.Email == nil || rec.Email.MessageID == "" {
		return
	}

	raw, err := p.e.messages.Source(p.ctx, rec.Email.MessageID)
	if err != nil {
		p.e.log.Debug().Err(err).Str("id", rec.ID).Msg("message source enrichment failed")
		return
	}

	preview, attachments := parseMIMESource(raw)
	if preview == "" && len(attachments) == 0 {
		return
	}

	apply(func() {
		rec.Enrichment.Preview = preview
		rec.Enrichment.Attachments = attachments
	})
}
