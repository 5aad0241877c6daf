package directory

import (
	"context"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
)

// targetResponse is the wire shape shared by the account, contact,
// case, and deal detail endpoints, reduced to the fields a timeline
// needs.
type targetResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Account  string `json:"account"`
	Contacts []struct {
		ID string `json:"id"`
	} `json:"contacts"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// TargetResolver resolves an entity id to the timeline target shape.
// Besides seeding the aggregator, the enrichers use it to name the
// contact a note arrived through.
type TargetResolver interface {
	ResolveTarget(ctx context.Context, kind model.TargetKind, id string) (*model.Target, error)
}

// targetPaths maps a target kind to its REST collection.
var targetPaths = map[model.TargetKind]string{
	model.TargetAccount: "/api/accounts/",
	model.TargetContact: "/api/contacts/",
	model.TargetCase:    "/api/cases/",
	model.TargetDeal:    "/api/deals/",
}

// ResolveTarget fetches the entity a timeline is being built for and
// maps it into the aggregator's read-only target shape, including
// linked contact ids and email addresses.
func (d *HTTPDirectory) ResolveTarget(
	ctx context.Context,
	kind model.TargetKind,
	id string,
) (*model.Target, error) {
	path, ok := targetPaths[kind]
	if !ok {
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}

	var resp targetResponse
	if err := d.rc.Get(ctx, path+id+"/", &resp); err != nil {
		return nil, fmt.Errorf("resolving %s %s: %w", kind, id, err)
	}

	target := &model.Target{
		ID:       resp.ID,
		Kind:     kind,
		Name:     resp.Name,
		ParentID: resp.Account,
	}
	if target.Name == "" {
		target.Name = resp.Subject
	}
	for _, c := range resp.Contacts {
		target.ContactIDs = append(target.ContactIDs, c.ID)
	}
	for _, e := range resp.EmailAddresses {
		target.EmailAddresses = append(target.EmailAddresses, e.EmailAddress)
	}

	return target, nil
}
