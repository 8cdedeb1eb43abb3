// internal/congress/bills.go
package congress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"congress-data-sync/internal/model"
)

// BillsPage is one page of the bill collection, sorted by update date
// descending upstream.
type BillsPage struct {
	Items      []model.Bill
	Pagination Pagination
}

// ListBills fetches one page of bills updated since opts.FromDateTime.
func (c *Client) ListBills(ctx context.Context, opts ListOptions) (*BillsPage, error) {
	q := listQuery(opts)
	// Encode turns the space into the documented `updateDate+desc` form.
	q.Set("sort", "updateDate desc")

	var resp struct {
		Bills      []wireBillItem `json:"bills"`
		Pagination wirePagination `json:"pagination"`
	}
	if err := c.get(ctx, fmt.Sprintf("/bill/%d", opts.Congress), q, &resp); err != nil {
		return nil, err
	}

	page := &BillsPage{Pagination: toPagination(resp.Pagination)}
	for _, b := range resp.Bills {
		page.Items = append(page.Items, toInternalBillItem(b))
	}
	return page, nil
}

// GetBill fetches full bill detail for a natural key.
func (c *Client) GetBill(ctx context.Context, congress int, billType, number string) (*model.Bill, error) {
	var resp struct {
		Bill wireBillDetail `json:"bill"`
	}
	if err := c.get(ctx, billPath(congress, billType, number), nil, &resp); err != nil {
		return nil, err
	}
	bill := toInternalBillDetail(resp.Bill)
	return &bill, nil
}

// GetBillActions fetches the full action history for a bill.
func (c *Client) GetBillActions(ctx context.Context, congress int, billType, number string) ([]model.BillAction, error) {
	var resp struct {
		Actions []wireAction `json:"actions"`
	}
	if err := c.get(ctx, billPath(congress, billType, number)+"/actions", childQuery(), &resp); err != nil {
		return nil, err
	}

	actions := make([]model.BillAction, 0, len(resp.Actions))
	for _, a := range resp.Actions {
		actions = append(actions, model.BillAction{
			ActionDate: parseDate(a.ActionDate),
			Text:       a.Text,
			ActionType: a.Type,
			Chamber:    a.SourceSystem.Name,
		})
	}
	return actions, nil
}

// GetBillSubjects fetches the legislative subjects attached to a bill.
func (c *Client) GetBillSubjects(ctx context.Context, congress int, billType, number string) ([]model.BillSubject, error) {
	var resp struct {
		Subjects struct {
			LegislativeSubjects []wireSubject `json:"legislativeSubjects"`
		} `json:"subjects"`
	}
	if err := c.get(ctx, billPath(congress, billType, number)+"/subjects", childQuery(), &resp); err != nil {
		return nil, err
	}

	subjects := make([]model.BillSubject, 0, len(resp.Subjects.LegislativeSubjects))
	for _, s := range resp.Subjects.LegislativeSubjects {
		subjects = append(subjects, model.BillSubject{Name: s.Name})
	}
	return subjects, nil
}

// GetBillSummaries fetches the CRS summaries written for a bill.
func (c *Client) GetBillSummaries(ctx context.Context, congress int, billType, number string) ([]model.BillSummary, error) {
	var resp struct {
		Summaries []wireSummaryVersion `json:"summaries"`
	}
	if err := c.get(ctx, billPath(congress, billType, number)+"/summaries", childQuery(), &resp); err != nil {
		return nil, err
	}

	summaries := make([]model.BillSummary, 0, len(resp.Summaries))
	for _, sv := range resp.Summaries {
		summaries = append(summaries, model.BillSummary{
			VersionCode: sv.VersionCode,
			ActionDesc:  sv.ActionDesc,
			ActionDate:  parseDate(sv.ActionDate),
			Text:        sv.Text,
		})
	}
	return summaries, nil
}

// GetBillCosponsors fetches a bill's cosponsors.
func (c *Client) GetBillCosponsors(ctx context.Context, congress int, billType, number string) ([]model.BillCosponsor, error) {
	var resp struct {
		Cosponsors []wireCosponsor `json:"cosponsors"`
	}
	if err := c.get(ctx, billPath(congress, billType, number)+"/cosponsors", childQuery(), &resp); err != nil {
		return nil, err
	}

	cosponsors := make([]model.BillCosponsor, 0, len(resp.Cosponsors))
	for _, cs := range resp.Cosponsors {
		cosponsors = append(cosponsors, model.BillCosponsor{
			BioguideID:      cs.BioguideID,
			FullName:        cs.FullName,
			Party:           cs.Party,
			State:           cs.State,
			SponsorshipDate: parseDate(cs.SponsorshipDate),
			IsOriginal:      cs.IsOriginalCosponsor,
		})
	}
	return cosponsors, nil
}

// GetBillTextVersions fetches a bill's published text versions.
func (c *Client) GetBillTextVersions(ctx context.Context, congress int, billType, number string) ([]model.BillTextVersion, error) {
	var resp struct {
		TextVersions []wireTextVersion `json:"textVersions"`
	}
	if err := c.get(ctx, billPath(congress, billType, number)+"/text", childQuery(), &resp); err != nil {
		return nil, err
	}

	versions := make([]model.BillTextVersion, 0, len(resp.TextVersions))
	for _, tv := range resp.TextVersions {
		v := model.BillTextVersion{Type: tv.Type, Date: parseDate(tv.Date)}
		if len(tv.Formats) > 0 {
			v.URL = tv.Formats[0].URL
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func billPath(congress int, billType, number string) string {
	return fmt.Sprintf("/bill/%d/%s/%s", congress, strings.ToLower(billType), number)
}

// childQuery requests the maximum page for child collections; they rarely
// exceed one page at this size.
func childQuery() map[string][]string {
	return map[string][]string{"limit": {"250"}, "format": {"json"}}
}

// Wire types mirror the upstream JSON shapes.

type wirePagination struct {
	Count int    `json:"count"`
	Next  string `json:"next"`
}

type wireLatestAction struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
}

type wireBillItem struct {
	Congress      int              `json:"congress"`
	Type          string           `json:"type"`
	Number        string           `json:"number"`
	Title         string           `json:"title"`
	OriginChamber string           `json:"originChamber"`
	LatestAction  wireLatestAction `json:"latestAction"`
	UpdateDate    string           `json:"updateDate"`
}

type wireBillDetail struct {
	wireBillItem
	IntroducedDate string `json:"introducedDate"`
	Sponsors       []struct {
		BioguideID string `json:"bioguideId"`
		FullName   string `json:"fullName"`
	} `json:"sponsors"`
	Laws []struct {
		Type   string `json:"type"`
		Number string `json:"number"`
	} `json:"laws"`
}

type wireAction struct {
	ActionDate   string `json:"actionDate"`
	Text         string `json:"text"`
	Type         string `json:"type"`
	SourceSystem struct {
		Name string `json:"name"`
	} `json:"sourceSystem"`
}

type wireSubject struct {
	Name string `json:"name"`
}

type wireSummaryVersion struct {
	VersionCode string `json:"versionCode"`
	ActionDesc  string `json:"actionDesc"`
	ActionDate  string `json:"actionDate"`
	Text        string `json:"text"`
}

type wireCosponsor struct {
	BioguideID          string `json:"bioguideId"`
	FullName            string `json:"fullName"`
	Party               string `json:"party"`
	State               string `json:"state"`
	SponsorshipDate     string `json:"sponsorshipDate"`
	IsOriginalCosponsor bool   `json:"isOriginalCosponsor"`
}

type wireTextVersion struct {
	Type    string `json:"type"`
	Date    string `json:"date"`
	Formats []struct {
		URL string `json:"url"`
	} `json:"formats"`
}

// toInternalBillItem translates a list item to a partial model.Bill; detail
// fields (sponsor, law status, introduced date) come from GetBill.
func toInternalBillItem(b wireBillItem) model.Bill {
	return model.Bill{
		Slug:             model.BillSlug(b.Congress, b.Type, b.Number),
		Congress:         b.Congress,
		BillType:         strings.ToLower(b.Type),
		BillNumber:       b.Number,
		Title:            b.Title,
		OriginChamber:    b.OriginChamber,
		LatestActionText: b.LatestAction.Text,
		LatestActionDate: parseDate(b.LatestAction.ActionDate),
		UpdateDate:       parseDate(b.UpdateDate),
	}
}

func toInternalBillDetail(b wireBillDetail) model.Bill {
	bill := toInternalBillItem(b.wireBillItem)
	bill.IntroducedDate = parseDate(b.IntroducedDate)
	if len(b.Sponsors) > 0 {
		bill.SponsorBioguide = b.Sponsors[0].BioguideID
		bill.SponsorName = b.Sponsors[0].FullName
	}
	if len(b.Laws) > 0 {
		bill.IsLaw = true
		bill.LawNumber = b.Laws[0].Number
	}
	return bill
}

// parseDate accepts the two timestamp shapes the API emits (date-only and
// RFC3339) and returns the zero time for anything else.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
